// Package services – RatingService
//
// This file implements the RatingService, which governs human and AI ratings
// on nodes. Human ratings are a per-user map (resubmission overwrites), the
// AI rating is written at most once, and both feed the derived aggregates
// stored on the node. All derived values use integer rounding.
//
// Aggregate math:
//
//	humanAverageRating = round(mean of all human ratings)
//	averageRating      = round((humanAvg*humanCount + aiRating) / (humanCount+1))
//	                     when an AI rating exists, else humanAverageRating
//	totalRatingCount   = humanCount, +1 when an AI rating exists
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/inquirycomplex/go-wiki-backend/internal/domain"
	"github.com/inquirycomplex/go-wiki-backend/internal/llm"
	"github.com/inquirycomplex/go-wiki-backend/internal/prompt"
	"github.com/inquirycomplex/go-wiki-backend/internal/repo"
)

// aiRatingTemperature is deliberately low: scoring should be stable across
// calls, not creative.
const aiRatingTemperature = 0.3

// neutralAIRating is used when the model reply contains no usable integer.
const neutralAIRating = 50

// firstIntRE extracts the first integer from a model reply.
var firstIntRE = regexp.MustCompile(`\d+`)

// RatingService implements the use-cases around node ratings.
// Rating writes run inside a per-node transaction so the read-modify-write of
// the rating map and its aggregates is atomic; two racing submissions
// serialize instead of losing one update.
type RatingService struct {
	// DB is the database handle used for all rating operations.
	DB *gorm.DB

	// Gateway and Prompts serve AI rating generation. They may be nil in
	// deployments that only accept human ratings; GenerateAI then fails with
	// a gateway error instead of scoring.
	Gateway llm.Gateway
	Prompts *prompt.Store
}

// SubmitHuman records userID's rating for a node and recomputes the
// aggregates. Resubmitting overwrites the user's previous rating. Any legacy
// array-shaped ratings still on the node are folded into the per-user map
// first; the migration is idempotent and a no-op when the array is empty.
//
// Errors: ErrInvalidRating for values outside [0,100], ErrNodeNotFound when
// the node is missing, otherwise the underlying DB error.
func (s *RatingService) SubmitHuman(ctx context.Context, collection, nodeID, userID string, rating int) (*domain.Node, error) {
	if rating < 0 || rating > 100 {
		return nil, ErrInvalidRating
	}

	var out *domain.Node
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.GetNode(ctx, tx, collection, nodeID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNodeNotFound
			}
			return err
		}

		ratings := migrateLegacy(n)
		ratings[userID] = domain.HumanRating{Rating: rating, Timestamp: time.Now().UTC()}
		n.HumanRatings = datatypes.NewJSONType(ratings)

		recomputeAggregates(n, ratings)

		if err := repo.SaveRatings(ctx, tx, n); err != nil {
			return err
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SubmitAI records the AI rating for a node. AI ratings are at-most-once:
// a second submission fails with ErrAIRatingExists and leaves the node
// untouched.
func (s *RatingService) SubmitAI(ctx context.Context, collection, nodeID string, rating int) (*domain.Node, error) {
	if rating < 0 || rating > 100 {
		return nil, ErrInvalidRating
	}

	var out *domain.Node
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.GetNode(ctx, tx, collection, nodeID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrNodeNotFound
			}
			return err
		}
		if n.HasAIRating() {
			return ErrAIRatingExists
		}

		now := time.Now().UTC()
		n.AIRating = &rating
		n.AIRatingTimestamp = &now
		recomputeAggregates(n, migrateLegacy(n))

		if err := repo.SaveRatings(ctx, tx, n); err != nil {
			return err
		}
		out = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UserRating returns userID's rating for a node, with present=false when the
// user has not rated it.
func (s *RatingService) UserRating(ctx context.Context, collection, nodeID, userID string) (int, bool, error) {
	n, err := repo.GetNode(ctx, s.DB, collection, nodeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, false, ErrNodeNotFound
		}
		return 0, false, err
	}
	r, ok := n.HumanRatings.Data()[userID]
	if !ok {
		// The user's rating may still live in the unmigrated legacy array.
		for _, lr := range n.LegacyRatings.Data() {
			if lr.UserID == userID {
				return lr.Rating, true, nil
			}
		}
		return 0, false, nil
	}
	return r.Rating, true, nil
}

// AIRating returns the node's AI rating, with present=false when none has
// been recorded.
func (s *RatingService) AIRating(ctx context.Context, collection, nodeID string) (int, bool, error) {
	n, err := repo.GetNode(ctx, s.DB, collection, nodeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return 0, false, ErrNodeNotFound
		}
		return 0, false, err
	}
	if !n.HasAIRating() {
		return 0, false, nil
	}
	return *n.AIRating, true, nil
}

// GenerateAI asks the model to score a node and records the result via
// SubmitAI. The reply's first integer in [0,100] is used; an unparseable
// reply falls back to the neutral score of 50 rather than failing.
//
// Question nodes are never scored (ErrNotRateable), and a node that already
// has an AI rating fails fast with ErrAIRatingExists before any model call.
func (s *RatingService) GenerateAI(ctx context.Context, collection, nodeID string) (*domain.Node, error) {
	n, err := repo.GetNode(ctx, s.DB, collection, nodeID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, err
	}
	if n.NodeType == domain.TypeQuestion {
		return nil, ErrNotRateable
	}
	if n.HasAIRating() {
		return nil, ErrAIRatingExists
	}
	if s.Gateway == nil || s.Prompts == nil {
		return nil, fmt.Errorf("%w: no model gateway configured", llm.ErrGateway)
	}

	tmpl, err := s.Prompts.Rating(n.NodeType)
	if err != nil {
		return nil, err
	}

	vars := map[string]string{
		"summary": n.Summary,
		"content": n.Content,
	}
	if n.ParentID != nil {
		if parent, perr := repo.GetNode(ctx, s.DB, collection, *n.ParentID); perr == nil {
			vars["parent_summary"] = parent.Summary
			vars["parent_content"] = parent.Content
		}
		// A missing parent degrades to "Not available" placeholders.
	}

	reply, err := s.Gateway.Complete(ctx, prompt.Fill(tmpl, vars), aiRatingTemperature)
	if err != nil {
		return nil, err
	}
	return s.SubmitAI(ctx, collection, nodeID, parseRating(reply))
}

// parseRating extracts the first integer in [0,100] from a model reply,
// defaulting to the neutral score when none is found.
func parseRating(reply string) int {
	for _, m := range firstIntRE.FindAllString(reply, -1) {
		v, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if v >= 0 && v <= 100 {
			return v
		}
	}
	return neutralAIRating
}

// migrateLegacy folds any legacy array-shaped ratings into the per-user map
// and clears the array. Map entries win over legacy entries for the same
// user. Returns the merged map; the caller persists it.
func migrateLegacy(n *domain.Node) map[string]domain.HumanRating {
	ratings := n.HumanRatings.Data()
	if ratings == nil {
		ratings = make(map[string]domain.HumanRating)
	}
	legacy := n.LegacyRatings.Data()
	if len(legacy) == 0 {
		return ratings
	}
	for _, lr := range legacy {
		if lr.UserID == "" {
			continue
		}
		if _, exists := ratings[lr.UserID]; !exists {
			ratings[lr.UserID] = domain.HumanRating{Rating: lr.Rating, Timestamp: lr.Timestamp}
		}
	}
	n.HumanRatings = datatypes.NewJSONType(ratings)
	n.LegacyRatings = datatypes.NewJSONType([]domain.LegacyRating(nil))
	return ratings
}

// recomputeAggregates refreshes the derived rating fields from the human
// rating map and the optional AI rating.
func recomputeAggregates(n *domain.Node, ratings map[string]domain.HumanRating) {
	count := len(ratings)
	avg := 0
	if count > 0 {
		sum := 0
		for _, r := range ratings {
			sum += r.Rating
		}
		avg = int(math.Round(float64(sum) / float64(count)))
	}
	n.HumanAverageRating = avg
	n.HumanRatingCount = count

	if n.HasAIRating() {
		combined := float64(avg*count+*n.AIRating) / float64(count+1)
		n.AverageRating = int(math.Round(combined))
		n.TotalRatingCount = count + 1
	} else {
		n.AverageRating = avg
		n.TotalRatingCount = count
	}
}
