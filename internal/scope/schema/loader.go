// Package schema loads and interprets the read-only description of a package level.
package schema

import (
	"context"
	"errors"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
)

// Source fetches the raw schema document for a package level.
type Source interface {
	FetchSchema(ctx context.Context, packageID, levelKey string) ([]byte, error)
}

// Loader turns schema documents into models.Schema values.
type Loader struct {
	source Source
	logger logger.Logger
}

func NewLoader(source Source, log logger.Logger) *Loader {
	return &Loader{
		source: source,
		logger: log.WithFields(map[string]interface{}{"component": "schema-loader"}),
	}
}

// LoadSchema fetches and decodes a schema. Errors are *errors.StandardError
// with code SCHEMA_NOT_FOUND or SCHEMA_LOAD_FAILED.
func (l *Loader) LoadSchema(ctx context.Context, packageID, levelKey string) (*models.Schema, error) {
	document, err := l.source.FetchSchema(ctx, packageID, levelKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, apperrors.NewSchemaNotFoundError(packageID, levelKey)
		}
		return nil, apperrors.NewSchemaLoadError(err)
	}

	s, stats, err := Decode(packageID, levelKey, document)
	if err != nil {
		return nil, apperrors.NewSchemaLoadError(err)
	}

	if stats.SkippedPhases+stats.SkippedFields+stats.SkippedOptions > 0 {
		l.logger.Debug("skipped malformed schema entries", map[string]interface{}{
			"packageId":      packageID,
			"levelKey":       levelKey,
			"skippedPhases":  stats.SkippedPhases,
			"skippedFields":  stats.SkippedFields,
			"skippedOptions": stats.SkippedOptions,
		})
	}

	l.logger.Info("schema loaded", map[string]interface{}{
		"packageId": packageID,
		"levelKey":  levelKey,
		"phases":    len(s.Phases),
		"hasDraft":  s.EmbeddedDraft != nil,
	})
	return s, nil
}

// FieldIndex returns every field of the schema keyed by ID.
func FieldIndex(s *models.Schema) map[string]models.Field {
	index := make(map[string]models.Field)
	if s == nil {
		return index
	}
	for _, phase := range s.Phases {
		for _, field := range phase.Fields {
			index[field.ID] = field
		}
	}
	return index
}
