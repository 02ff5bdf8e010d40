package draft

import (
	"context"
	"errors"
	"testing"

	apperrors "obsp-workers/internal/common/errors"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/responses"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	draft *models.Draft
	err   error
}

func (s stubSource) FetchDraft(ctx context.Context, packageID, levelKey string) (*models.Draft, error) {
	return s.draft, s.err
}

func testSchema() *models.Schema {
	return &models.Schema{Phases: []models.Phase{{
		ID: "p1",
		Fields: []models.Field{
			{ID: "tier", Type: models.FieldRadio},
			{ID: "addons", Type: models.FieldCheckbox},
		},
	}}}
}

func TestReconcile_OneShot(t *testing.T) {
	store := responses.NewStore(testSchema(), nil)
	r := NewReconciler(logger.NewTestLogger(t))

	first := r.Reconcile(store, &models.Draft{DraftID: "d-1", Responses: models.Responses{"tier": "Pro"}}, nil)
	assert.True(t, first.Applied)
	assert.Equal(t, ProvenanceServerDraft, first.Provenance)
	assert.Equal(t, "d-1", first.DraftID)
	assert.True(t, r.Loaded())

	second := r.Reconcile(store, &models.Draft{DraftID: "d-2", Responses: models.Responses{"tier": "Basic", "addons": []string{"A"}}}, nil)
	assert.Equal(t, first, second)
	assert.Equal(t, models.Responses{"tier": "Pro"}, store.GetAll())
	assert.False(t, store.Touched())
}

func TestReconcile_FetchedWinsOverEmbedded(t *testing.T) {
	store := responses.NewStore(testSchema(), nil)
	r := NewReconciler(logger.NewTestLogger(t))

	res := r.Reconcile(store,
		&models.Draft{DraftID: "server", Responses: models.Responses{"tier": "Pro"}},
		&models.Draft{DraftID: "embedded", Responses: models.Responses{"tier": "Basic"}},
	)

	assert.Equal(t, "server", res.DraftID)
	v, _ := store.Get("tier")
	assert.Equal(t, "Pro", v)
}

func TestReconcile_EmbeddedFallback(t *testing.T) {
	store := responses.NewStore(testSchema(), nil)
	r := NewReconciler(logger.NewTestLogger(t))

	res := r.Reconcile(store, nil, &models.Draft{DraftID: "embedded", Responses: models.Responses{"addons": []interface{}{"A"}}})

	assert.Equal(t, ProvenanceSchemaDraft, res.Provenance)
	assert.Equal(t, 1, res.FieldsMerged)
	v, _ := store.Get("addons")
	assert.Equal(t, []string{"A"}, v)
}

func TestReconcile_UserEditsWin(t *testing.T) {
	store := responses.NewStore(testSchema(), nil)
	store.SetValue("tier", "Basic")
	r := NewReconciler(logger.NewTestLogger(t))

	res := r.Reconcile(store, &models.Draft{DraftID: "d-1", Responses: models.Responses{"tier": "Pro", "addons": []string{"A"}}}, nil)

	assert.False(t, res.Applied)
	assert.Equal(t, ProvenanceLocal, res.Provenance)
	assert.True(t, res.DraftDetected)
	assert.Equal(t, models.Responses{"tier": "Basic"}, store.GetAll())
}

func TestReconcile_NoDraftAndConsumedDraft(t *testing.T) {
	store := responses.NewStore(testSchema(), nil)
	r := NewReconciler(logger.NewTestLogger(t))

	res := r.Reconcile(store, &models.Draft{DraftID: "old", Status: models.DraftStatusSubmitted, Responses: models.Responses{"tier": "Pro"}}, nil)

	assert.False(t, res.DraftDetected)
	assert.Equal(t, ProvenanceNone, res.Provenance)
	assert.Empty(t, store.GetAll())
}

func TestFetch(t *testing.T) {
	ctx := context.Background()

	d, err := Fetch(ctx, stubSource{draft: &models.Draft{DraftID: "d-1"}}, "pkg", "gold")
	require.NoError(t, err)
	assert.Equal(t, "d-1", d.DraftID)

	d, err = Fetch(ctx, stubSource{err: models.ErrNotFound}, "pkg", "gold")
	require.NoError(t, err)
	assert.Nil(t, d)

	d, err = Fetch(ctx, stubSource{err: errors.New("timeout")}, "pkg", "gold")
	assert.Nil(t, d)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeDraftLoadFailed))

	d, err = Fetch(ctx, nil, "pkg", "gold")
	assert.NoError(t, err)
	assert.Nil(t, d)
}
