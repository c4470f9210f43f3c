package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCollectionStats_CountError_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := CollectionStats(context.Background(), db, "main")
	if err == nil {
		t.Fatalf("expected error due to missing nodes table")
	}
}

func TestCollectionStats_ZeroRows(t *testing.T) {
	db := newTestDB(t, &domain.Node{})
	count, maxAt, err := CollectionStats(context.Background(), db, "main")
	if err != nil {
		t.Fatalf("CollectionStats error: %v", err)
	}
	if count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", count, maxAt)
	}
}

func TestCollectionStats_Success_FilterAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Node{})

	// Seed nodes in two collections; ensure UpdatedAt is exactly what we set.
	t1 := time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 3, 4, 10, 30, 0, 0, time.UTC) // max for "main"
	t3 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)   // for other collection

	seed := []domain.Node{
		{ID: "a", Collection: "main", NodeType: domain.TypeQuestion, CreatedAt: t1, UpdatedAt: t1},
		{ID: "b", Collection: "main", NodeType: domain.TypeThesis, CreatedAt: t2, UpdatedAt: t2},
		{ID: "c", Collection: "other", NodeType: domain.TypeQuestion, CreatedAt: t3, UpdatedAt: t3},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		// GORM stamps UpdatedAt on create; force our deterministic values back.
		if err := db.Model(&domain.Node{}).Where("id = ?", seed[i].ID).
			Update("updated_at", seed[i].UpdatedAt).Error; err != nil {
			t.Fatalf("force updated_at: %v", err)
		}
	}

	count, maxAt, err := CollectionStats(context.Background(), db, "main")
	if err != nil {
		t.Fatalf("CollectionStats error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected count=2, got %d", count)
	}
	if maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected maxUpdatedAt=%v, got %v", t2, maxAt)
	}
}

func TestChildrenStats_ZeroAndMax(t *testing.T) {
	db := newTestDB(t, &domain.Node{})

	count, maxAt, err := ChildrenStats(context.Background(), db, "main", "p1")
	if err != nil || count != 0 || maxAt != nil {
		t.Fatalf("expected (0, nil, nil), got (%d, %v, %v)", count, maxAt, err)
	}

	pid := "p1"
	t1 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	t2 := time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC)
	for i, ts := range []time.Time{t1, t2} {
		n := domain.Node{ID: fmt.Sprintf("ch%d", i), Collection: "main", NodeType: domain.TypeThesis, ParentID: &pid, CreatedAt: ts}
		if err := db.Create(&n).Error; err != nil {
			t.Fatalf("seed child: %v", err)
		}
		if err := db.Model(&domain.Node{}).Where("id = ?", n.ID).Update("updated_at", ts).Error; err != nil {
			t.Fatalf("force updated_at: %v", err)
		}
	}

	count, maxAt, err = ChildrenStats(context.Background(), db, "main", "p1")
	if err != nil {
		t.Fatalf("ChildrenStats error: %v", err)
	}
	if count != 2 || maxAt == nil || !maxAt.Equal(t2) {
		t.Fatalf("expected (2, %v), got (%d, %v)", t2, count, maxAt)
	}
}
