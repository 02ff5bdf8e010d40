// Package draft seeds a configuration from a previously saved draft.
package draft

import (
	"context"
	"errors"
	"sync"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/responses"
)

// Provenance records where the store's initial values came from.
type Provenance string

const (
	ProvenanceNone        Provenance = "none"
	ProvenanceServerDraft Provenance = "server_draft"
	ProvenanceSchemaDraft Provenance = "schema_draft"
	ProvenanceLocal       Provenance = "local"
)

// Source fetches the saved draft for a package level. A missing draft is
// reported as models.ErrNotFound.
type Source interface {
	FetchDraft(ctx context.Context, packageID, levelKey string) (*models.Draft, error)
}

// Result describes what the single reconciliation did.
type Result struct {
	Applied       bool       `json:"applied"`
	Provenance    Provenance `json:"provenance"`
	DraftDetected bool       `json:"draftDetected"`
	DraftID       string     `json:"draftId,omitempty"`
	FieldsMerged  int        `json:"fieldsMerged"`
}

// Fetch loads the draft for a level. No draft is (nil, nil); any other failure
// is a DRAFT_LOAD_FAILED error that callers treat as non-fatal.
func Fetch(ctx context.Context, source Source, packageID, levelKey string) (*models.Draft, error) {
	if source == nil {
		return nil, nil
	}
	d, err := source.FetchDraft(ctx, packageID, levelKey)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDraftLoadError(err)
	}
	return d, nil
}

// Reconciler merges a draft into a store at most once.
type Reconciler struct {
	mu     sync.Mutex
	loaded bool
	result Result
	logger logger.Logger
}

func NewReconciler(log logger.Logger) *Reconciler {
	return &Reconciler{
		result: Result{Provenance: ProvenanceNone},
		logger: log,
	}
}

// Reconcile seeds store from fetched, falling back to embedded. Only the first
// call has any effect; later calls return the first result unchanged. Nothing
// is merged when the user has already written to the store.
func (r *Reconciler) Reconcile(store *responses.Store, fetched, embedded *models.Draft) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return r.result
	}
	r.loaded = true

	src, provenance := pick(fetched, embedded)
	if src == nil {
		r.result = Result{Provenance: ProvenanceNone}
		if store.Touched() {
			r.result.Provenance = ProvenanceLocal
		}
		return r.result
	}

	r.result = Result{
		Provenance:    provenance,
		DraftDetected: true,
		DraftID:       src.DraftID,
	}

	if store.Touched() {
		r.result.Provenance = ProvenanceLocal
		r.logger.Info("draft ignored, responses already edited", map[string]interface{}{
			"draftId": src.DraftID,
		})
		return r.result
	}

	store.Seed(src.Responses)
	r.result.Applied = true
	r.result.FieldsMerged = len(src.Responses)

	r.logger.Info("draft merged into responses", map[string]interface{}{
		"draftId":    src.DraftID,
		"provenance": string(provenance),
		"fields":     len(src.Responses),
	})
	return r.result
}

// Loaded reports whether Reconcile has run.
func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Result returns the outcome of the first Reconcile call.
func (r *Reconciler) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

func pick(fetched, embedded *models.Draft) (*models.Draft, Provenance) {
	if usable(fetched) {
		return fetched, ProvenanceServerDraft
	}
	if usable(embedded) {
		return embedded, ProvenanceSchemaDraft
	}
	return nil, ProvenanceNone
}

// usable drops drafts that were already consumed by a purchase.
func usable(d *models.Draft) bool {
	return d != nil && d.Status != models.DraftStatusSubmitted
}
