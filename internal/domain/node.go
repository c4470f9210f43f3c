// Package domain defines the persistence models and core type tables for the
// argument-graph wiki. This file holds the Node document model and its rating
// sub-structures. Nodes are mapped with GORM; the rating maps are stored as
// JSON columns so the document-shaped data survives round-trips unchanged.
package domain

import (
	"sort"
	"time"

	"gorm.io/datatypes"
)

// HumanRating is one user's rating of a node. Each user holds at most one
// entry per node; resubmission overwrites the previous value.
type HumanRating struct {
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// LegacyRating is the pre-migration rating entry: an array element carrying
// its author inline. MigrateLegacyRatings folds these into HumanRatings.
type LegacyRating struct {
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// Node is a single argumentative node in a graph collection.
//
// Fields mirror the stored document shape:
//   - ID: UUID assigned at creation, never reused.
//   - Collection: the graph this node belongs to (one tree per collection).
//   - ParentID: nil only for the root; Depth is always parent depth + 1.
//   - Summary / Content: short title and brace-delimited proposition body.
//   - Terminal: true for types that admit no children (reason, direct_reply).
//   - UserGenerated: true when created through the generation pipeline rather
//     than bulk import.
//   - HasImage: set once at least one image asset exists for the node.
//   - Rating fields: per-user human ratings plus at most one AI rating,
//     with derived aggregates (see services.RatingService for the math).
type Node struct {
	ID         string   `json:"id"          gorm:"type:char(36);primaryKey"`
	Collection string   `json:"-"           gorm:"type:varchar(64);not null;index:idx_coll_parent,priority:1;index:idx_coll_type"`
	NodeType   NodeType `json:"node_type"   gorm:"type:varchar(16);not null;index:idx_coll_type,priority:2"`
	ParentID   *string  `json:"parent_id"   gorm:"type:char(36);index:idx_coll_parent,priority:2"`
	Depth      int      `json:"depth"       gorm:"not null;default:0;index"`
	Summary    string   `json:"summary"     gorm:"type:text;not null"`
	Content    string   `json:"content"     gorm:"type:text"`

	Terminal      bool `json:"terminal"       gorm:"not null;default:false"`
	UserGenerated bool `json:"user_generated" gorm:"not null;default:false;index"`
	HasImage      bool `json:"has_image"      gorm:"not null;default:false;index"`

	HumanRatings       datatypes.JSONType[map[string]HumanRating] `json:"humanRatings"`
	HumanAverageRating int                                        `json:"humanAverageRating" gorm:"not null;default:0"`
	HumanRatingCount   int                                        `json:"humanRatingCount"   gorm:"not null;default:0;index"`
	AIRating           *int                                       `json:"aiRating,omitempty"`
	AIRatingTimestamp  *time.Time                                 `json:"aiRatingTimestamp,omitempty"`
	AverageRating      int                                        `json:"averageRating"    gorm:"not null;default:0"`
	TotalRatingCount   int                                        `json:"totalRatingCount" gorm:"not null;default:0"`

	// LegacyRatings holds the old array-shaped rating field for nodes imported
	// before the per-user map existed. It is drained by the one-time migration
	// and kept empty afterwards.
	LegacyRatings datatypes.JSONType[[]LegacyRating] `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"-"`
}

// TableName returns the database table name for Node.
func (Node) TableName() string { return "nodes" }

// HasAIRating reports whether an AI rating has been recorded for the node.
func (n *Node) HasAIRating() bool { return n.AIRating != nil }

// SortByTypeOrder sorts nodes in place by the canonical type ordinal, breaking
// ties by creation time so repeated renders are stable.
func SortByTypeOrder(nodes []Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		oi, oj := Ordinal(nodes[i].NodeType), Ordinal(nodes[j].NodeType)
		if oi != oj {
			return oi < oj
		}
		return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
	})
}

// ImageAsset describes one stored image belonging to a node. Assets are listed
// from the blob store; they carry no database row of their own.
type ImageAsset struct {
	ID   string `json:"id"`
	URL  string `json:"url"`
	Name string `json:"name"`
}
