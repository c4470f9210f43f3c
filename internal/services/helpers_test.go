package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inquirycomplex/go-wiki-backend/internal/blob"
	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Node{}, &domain.Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func mustCreate(t *testing.T, db *gorm.DB, n domain.Node) domain.Node {
	t.Helper()
	if n.Collection == "" {
		n.Collection = "main"
	}
	if err := db.Create(&n).Error; err != nil {
		t.Fatalf("seed node %s: %v", n.ID, err)
	}
	return n
}

// fakeGateway is an in-memory llm.Gateway recording calls and replaying
// canned responses.
type fakeGateway struct {
	reply     string
	chunks    []string
	image     []byte
	err       error
	calls     int
	lastInput string
	lastTemp  float32
}

func (f *fakeGateway) Complete(_ context.Context, prompt string, temperature float32) (string, error) {
	f.calls++
	f.lastInput = prompt
	f.lastTemp = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeGateway) Stream(ctx context.Context, prompt string, temperature float32, fn func(string) error) error {
	f.calls++
	f.lastInput = prompt
	f.lastTemp = temperature
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeGateway) GenerateImage(_ context.Context, prompt string) ([]byte, error) {
	f.calls++
	f.lastInput = prompt
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

// fakeBlobs is an in-memory blob.Store.
type fakeBlobs struct {
	objects map[string][]byte
	types   map[string]string
	listErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobs) Upload(_ context.Context, name string, data []byte, contentType string) error {
	f.objects[name] = data
	f.types[name] = contentType
	return nil
}

func (f *fakeBlobs) List(_ context.Context, prefix string) ([]blob.Object, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []blob.Object
	for name, data := range f.objects {
		if len(name) >= len(prefix) && name[:len(prefix)] == prefix {
			out = append(out, blob.Object{Name: name, URL: f.URL(name), Size: int64(len(data))})
		}
	}
	return out, nil
}

func (f *fakeBlobs) URL(name string) string { return "https://blobs.test/" + name }

// promptDir builds a prompt store over a temp dir with the given files.
func promptDir(t *testing.T, files map[string]string) *prompt.Store {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}
	return prompt.NewStore(root)
}
