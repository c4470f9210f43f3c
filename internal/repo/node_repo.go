// Package repo implements the data persistence layer for the argument graph,
// backed by GORM. This file provides repository functions for the Node model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition. The one presentation concern handled
// here is sibling ordering: children are returned in the canonical type
// order so every caller sees the same arrangement.
//
// Error semantics:
//   - When a node is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// This repository is designed to be wrapped by higher-level services
// (see services.RatingService, services.GenerationService) which enforce
// business rules and cross-aggregate behavior.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// GetNode fetches a single node by collection and ID. If the record does not
// exist, it returns ErrNotFound. On other DB errors, the raw error is returned.
func GetNode(ctx context.Context, db *gorm.DB, collection, id string) (*domain.Node, error) {
	var n domain.Node
	err := db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ChildNodes returns the children of parentID within a collection, sorted by
// the canonical type order with creation time as tie-break. It returns an
// empty slice when the parent has no children.
func ChildNodes(ctx context.Context, db *gorm.DB, collection, parentID string) ([]domain.Node, error) {
	var out []domain.Node
	err := db.WithContext(ctx).
		Where("collection = ? AND parent_id = ?", collection, parentID).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	domain.SortByTypeOrder(out)
	return out, nil
}

// RootNode returns the root question of a collection: the unique node at
// depth 0 with node_type "question". ErrNotFound when the collection is empty
// or was imported without a root.
func RootNode(ctx context.Context, db *gorm.DB, collection string) (*domain.Node, error) {
	var n domain.Node
	err := db.WithContext(ctx).
		Where("collection = ? AND depth = 0 AND node_type = ?", collection, domain.TypeQuestion).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NodesByType returns all nodes of the given type in a collection, ordered by
// creation time ascending.
func NodesByType(ctx context.Context, db *gorm.DB, collection string, t domain.NodeType) ([]domain.Node, error) {
	var out []domain.Node
	err := db.WithContext(ctx).
		Where("collection = ? AND node_type = ?", collection, t).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// UserModifiedNodes returns every node a user has touched: rated at least
// once, carrying an image, or created through the generation pipeline.
func UserModifiedNodes(ctx context.Context, db *gorm.DB, collection string) ([]domain.Node, error) {
	var out []domain.Node
	err := db.WithContext(ctx).
		Where("collection = ? AND (human_rating_count > 0 OR has_image = ? OR user_generated = ?)",
			collection, true, true).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// AllNodes returns every node of a collection. Used to build the in-memory
// search index at startup; not exposed over the API.
func AllNodes(ctx context.Context, db *gorm.DB, collection string) ([]domain.Node, error) {
	var out []domain.Node
	err := db.WithContext(ctx).
		Where("collection = ?", collection).
		Find(&out).Error
	return out, err
}

// CreateNode inserts a new node. When n.ID is empty a fresh UUID is assigned,
// and a zero CreatedAt is set to the current UTC time.
func CreateNode(ctx context.Context, db *gorm.DB, n *domain.Node) (*domain.Node, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// SaveRatings persists the rating columns of a node. It is intended to run
// inside the transaction that read the node, so the read-modify-write is
// atomic per node. Returns ErrNotFound when the row has vanished.
func SaveRatings(ctx context.Context, db *gorm.DB, n *domain.Node) error {
	res := db.WithContext(ctx).
		Model(&domain.Node{}).
		Where("collection = ? AND id = ?", n.Collection, n.ID).
		Updates(map[string]any{
			"human_ratings":        n.HumanRatings,
			"human_average_rating": n.HumanAverageRating,
			"human_rating_count":   n.HumanRatingCount,
			"ai_rating":            n.AIRating,
			"ai_rating_timestamp":  n.AIRatingTimestamp,
			"average_rating":       n.AverageRating,
			"total_rating_count":   n.TotalRatingCount,
			"legacy_ratings":       n.LegacyRatings,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetHasImage marks a node as carrying at least one image asset. Setting an
// already-set flag is a no-op, not an error.
func SetHasImage(ctx context.Context, db *gorm.DB, collection, id string) error {
	res := db.WithContext(ctx).
		Model(&domain.Node{}).
		Where("collection = ? AND id = ?", collection, id).
		Update("has_image", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Distinguish "missing" from "already true": has_image updates always
		// affect the row under SQLite, so zero rows means no such node.
		var count int64
		if err := db.WithContext(ctx).Model(&domain.Node{}).
			Where("collection = ? AND id = ?", collection, id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// ImportNodes bulk-inserts nodes in batches of batchSize. IDs and timestamps
// are filled like CreateNode. Used by the collection import endpoint.
func ImportNodes(ctx context.Context, db *gorm.DB, nodes []domain.Node, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	now := time.Now().UTC()
	for i := range nodes {
		if nodes[i].ID == "" {
			nodes[i].ID = uuid.NewString()
		}
		if nodes[i].CreatedAt.IsZero() {
			nodes[i].CreatedAt = now
		}
	}
	return db.WithContext(ctx).CreateInBatches(nodes, batchSize).Error
}
