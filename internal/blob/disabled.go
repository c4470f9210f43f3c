package blob

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Disabled for every mutating or listing call.
var ErrDisabled = errors.New("blob store not configured")

// Disabled is the Store used when no bucket is configured. Uploads and
// generation fail with ErrDisabled; listings come back empty so node reads
// still work in deployments without image support.
type Disabled struct{}

// Upload implements Store.
func (Disabled) Upload(context.Context, string, []byte, string) error { return ErrDisabled }

// List implements Store.
func (Disabled) List(context.Context, string) ([]Object, error) { return nil, nil }

// URL implements Store.
func (Disabled) URL(string) string { return "" }
