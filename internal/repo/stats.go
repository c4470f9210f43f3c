// Package repo implements the data persistence layer for the argument graph,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

// CollectionStats returns aggregate metadata for a collection: the total
// number of nodes and the maximum UpdatedAt timestamp among those rows.
//
// It executes two lightweight queries against the nodes table scoped to the
// provided collection. When the collection is empty, the returned count is 0
// and maxUpdatedAt is nil.
//
// Return values:
//   - count:        total nodes in the collection
//   - maxUpdatedAt: pointer to the greatest UpdatedAt, or nil if no rows
//   - err:          database error, if any
func CollectionStats(ctx context.Context, db *gorm.DB, collection string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Node{}).Where("collection = ?", collection)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// ChildrenStats returns aggregate metadata for the children of a node:
// the total number of rows and the maximum UpdatedAt timestamp among them.
// When the node has no children, the returned count is 0 and maxUpdatedAt
// is nil.
func ChildrenStats(ctx context.Context, db *gorm.DB, collection, parentID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Node{}).
		Where("collection = ? AND parent_id = ?", collection, parentID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
