// Package services defines the business logic of the argument-graph wiki:
// ratings, child generation, explanations, images, graph navigation, and the
// belief digest. This file centralizes common service-level error values so
// that they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrNodeNotFound indicates that the referenced node does not exist in the
	// requested collection.
	ErrNodeNotFound = errors.New("node not found")

	// ErrGraphUnknown indicates that no graph is configured under the
	// requested name.
	ErrGraphUnknown = errors.New("unknown graph")

	// ErrInvalidTransition is returned when a requested child type is not
	// permitted for the parent's type. The check runs before any network call.
	ErrInvalidTransition = errors.New("child type not permitted for parent type")

	// ErrInvalidRating is returned when a rating value lies outside [0, 100].
	ErrInvalidRating = errors.New("rating must be between 0 and 100")

	// ErrAIRatingExists is returned when an AI rating is submitted for a node
	// that already has one. AI ratings are written at most once.
	ErrAIRatingExists = errors.New("ai rating already exists")

	// ErrNotRateable is returned when an AI rating is requested for a question
	// node. Questions pose the debate; they are never scored.
	ErrNotRateable = errors.New("question nodes are not rated")

	// ErrParseError is returned when a model response does not contain the
	// expected [START]...[BREAK]...[END] block. Nothing is persisted.
	ErrParseError = errors.New("malformed generation response")

	// ErrEmptyUpload is returned when an image upload carries no bytes.
	ErrEmptyUpload = errors.New("empty upload")
)
