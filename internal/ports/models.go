package ports

import (
	"context"

	"github.com/devbush/voxcribe/internal/domain"
)

// ModelRepository manages the local model artifacts.
type ModelRepository interface {
	// ListAll returns a descriptor per catalog entry, recomputed from disk.
	ListAll() []domain.ModelDescriptor

	// Get returns the descriptor for a single model.
	Get(id domain.ModelID) (domain.ModelDescriptor, error)

	// IsAvailable reports whether the artifact exists and is non-empty.
	IsAvailable(id domain.ModelID) bool

	// ResolveLocalPath returns the artifact path or an ErrModelUnavailable error.
	// It never downloads.
	ResolveLocalPath(id domain.ModelID) (string, error)

	// Acquire downloads the artifact. progress receives the completed ratio and is
	// only called when the server reports a content length.
	Acquire(ctx context.Context, id domain.ModelID, progress func(ratio float64)) error

	// Remove deletes the artifact. Removing an absent model is not an error.
	Remove(ctx context.Context, id domain.ModelID) error
}
