// Package corpus provides access to the SOP document corpus.
package corpus

import (
	"context"

	"github.com/hyperjump/annai/internal/models"
)

// Source supplies the current SOP corpus. Implementations return the full
// corpus on every call; the caller never sees partial pages.
type Source interface {
	FetchAll(ctx context.Context) ([]*models.SOPDocument, error)
}
