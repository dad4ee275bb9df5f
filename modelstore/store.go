package modelstore

import (
	"context"
	"errors"
	"strings"

	"github.com/hupe1980/entigo/model"
)

// ErrNotFound is returned when no model is stored for an entity type.
//
// Implementations should return an error that satisfies
// errors.Is(err, ErrNotFound).
var ErrNotFound = errors.New("entity model not found")

// Store persists entity model documents keyed by entity type.
type Store interface {
	// Get loads and parses the model for the entity type.
	Get(ctx context.Context, entityType string) (*model.Model, error)
	// Put validates and stores a model document for the entity type.
	Put(ctx context.Context, entityType string, doc []byte) error
	// Delete removes the model for the entity type.
	Delete(ctx context.Context, entityType string) error
	// List returns the stored entity types in lexicographic order.
	List(ctx context.Context) ([]string, error)
}

// ValidateEntityType rejects entity type names that cannot serve as store
// keys.
func ValidateEntityType(entityType string) error {
	if strings.TrimSpace(entityType) == "" {
		return model.NewValidationError("entity type must not be empty")
	}
	if strings.ContainsAny(entityType, "./") {
		return model.NewValidationError("entity type '%s' must not contain periods or slashes", entityType)
	}
	return nil
}

// validateDoc parses the document so only valid models are persisted.
func validateDoc(doc []byte) error {
	_, err := model.Parse(doc)
	return err
}
