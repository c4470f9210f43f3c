// Package services – ImageService
//
// This file implements node image assets: user uploads, listing, and
// AI-generated illustrations. Assets live in the blob store under
//
//	{collection}/{nodeID}/images/{unix-ms}-{filename}
//
// and the owning node carries a has_image flag that is set once and never
// cleared (no deletion pathway exists).
package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/blob"
	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// ImageService implements the image asset use-cases.
type ImageService struct {
	DB      *gorm.DB
	Blobs   blob.Store
	Gateway llm.Gateway
	Prompts *prompt.Store
}

// Upload stores an image for a node and marks the node as illustrated.
// The object name embeds a millisecond timestamp so repeated uploads of the
// same filename never collide.
func (s *ImageService) Upload(ctx context.Context, collection, nodeID, filename string, data []byte, contentType string) (*domain.ImageAsset, error) {
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	if _, err := repo.GetNode(ctx, s.DB, collection, nodeID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	name := imageObjectName(collection, nodeID, filename)
	if err := s.Blobs.Upload(ctx, name, data, contentType); err != nil {
		return nil, err
	}
	if err := repo.SetHasImage(ctx, s.DB, collection, nodeID); err != nil {
		return nil, err
	}
	return &domain.ImageAsset{
		ID:   name,
		URL:  s.Blobs.URL(name),
		Name: path.Base(name),
	}, nil
}

// List returns the image assets of a node. Listing is non-critical display
// data: a blob-store failure degrades to an empty list instead of failing
// the node view.
func (s *ImageService) List(ctx context.Context, collection, nodeID string) []domain.ImageAsset {
	prefix := fmt.Sprintf("%s/%s/images/", collection, nodeID)
	objects, err := s.Blobs.List(ctx, prefix)
	if err != nil {
		return nil
	}
	out := make([]domain.ImageAsset, 0, len(objects))
	for _, o := range objects {
		out = append(out, domain.ImageAsset{
			ID:   o.Name,
			URL:  o.URL,
			Name: path.Base(o.Name),
		})
	}
	return out
}

// Generate asks the model for an illustration of the node and stores it like
// a user upload. The prompt gets the node summary plus the content flattened
// to plain prose (brace delimiters stripped, whitespace collapsed).
func (s *ImageService) Generate(ctx context.Context, collection, nodeID string) (*domain.ImageAsset, error) {
	n, err := repo.GetNode(ctx, s.DB, collection, nodeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}

	tmpl, err := s.Prompts.ImagePrompt()
	if err != nil {
		return nil, err
	}
	filled := prompt.Fill(tmpl, map[string]string{
		"summary": n.Summary,
		"content": domain.FlattenContent(n.Content),
	})

	png, err := s.Gateway.GenerateImage(ctx, filled)
	if err != nil {
		return nil, err
	}
	return s.Upload(ctx, collection, nodeID, "generated.png", png, "image/png")
}

// imageObjectName builds the canonical object name for a node image. The
// filename is flattened to its base name so client-supplied paths cannot
// escape the node's prefix.
func imageObjectName(collection, nodeID, filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "upload"
	}
	return fmt.Sprintf("%s/%s/images/%d-%s", collection, nodeID, time.Now().UnixMilli(), base)
}
