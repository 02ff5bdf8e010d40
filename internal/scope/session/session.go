// Package session drives one buyer's configuration of a package: schema,
// responses, draft, wizard and checkout for the currently selected level.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/checkout"
	"obsp-workers/internal/scope/draft"
	"obsp-workers/internal/scope/pricing"
	"obsp-workers/internal/scope/responses"
	"obsp-workers/internal/scope/schema"
	"obsp-workers/internal/scope/wizard"

	"github.com/google/uuid"
)

var (
	ErrNotOpen      = errors.New("no package level is open")
	ErrNotAtPreview = errors.New("checkout is only available from the preview step")
	ErrClosed       = errors.New("session closed")
	ErrPurchased    = errors.New("package level already purchased in this session")
)

// Config tunes a session.
type Config struct {
	Debounce time.Duration
}

// Dependencies are the collaborators of a session. Drafts, Cache, Scheduler
// and Notify may be nil.
type Dependencies struct {
	Schemas      *schema.Loader
	Drafts       draft.Source
	Eligibility  checkout.EligibilityChecker
	Cache        checkout.EligibilityStore
	Orchestrator *checkout.Orchestrator
	Scheduler    responses.Scheduler
	Notify       responses.NotifyFunc
}

// Session is safe for concurrent use; debounce callbacks arrive on timer goroutines.
type Session struct {
	id        string
	packageID string
	config    Config
	deps      Dependencies
	logger    logger.Logger

	active     atomic.Bool
	generation atomic.Uint64

	mu         sync.Mutex
	levelKey   string
	basePrice  int64
	schema     *models.Schema
	schemaErr  error
	draftErr   error
	store      *responses.Store
	debouncer  *responses.Debouncer
	reconciler *draft.Reconciler
	reconcile  draft.Result
	wizard     *wizard.Wizard
	draftID    string
	purchased  bool
}

func New(packageID string, config Config, deps Dependencies, log logger.Logger) *Session {
	id := uuid.NewString()
	s := &Session{
		id:        id,
		packageID: packageID,
		config:    config,
		deps:      deps,
		logger: log.WithFields(map[string]interface{}{
			"sessionId": id,
			"packageId": packageID,
		}),
	}
	s.active.Store(true)
	return s
}

func (s *Session) ID() string { return s.id }

// Open loads levelKey. A schema failure leaves a usable session with no
// phases and is returned; a draft failure only degrades to an empty draft.
func (s *Session) Open(ctx context.Context, levelKey string, basePrice int64) error {
	if !s.active.Load() {
		return ErrClosed
	}
	log := s.logger.WithFields(map[string]interface{}{"levelKey": levelKey})

	sch, schemaErr := s.deps.Schemas.LoadSchema(ctx, s.packageID, levelKey)
	if schemaErr != nil {
		log.Warn("schema unavailable, opening empty configuration", map[string]interface{}{"error": schemaErr.Error()})
		sch = nil
	}

	fetched, draftErr := draft.Fetch(ctx, s.deps.Drafts, s.packageID, levelKey)
	if draftErr != nil {
		log.Warn("draft unavailable, continuing without it", map[string]interface{}{"error": draftErr.Error()})
	}

	var embedded *models.Draft
	if sch != nil {
		embedded = sch.EmbeddedDraft
	}

	debouncer := responses.NewDebouncer(s.config.Debounce, s.deps.Scheduler, s.deps.Notify, log)
	store := responses.NewStore(sch, debouncer)
	reconciler := draft.NewReconciler(log)
	result := reconciler.Reconcile(store, fetched, embedded)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.debouncer != nil {
		s.debouncer.Cancel()
	}
	s.generation.Add(1)
	s.levelKey = levelKey
	s.basePrice = basePrice
	s.schema = sch
	s.schemaErr = schemaErr
	s.draftErr = draftErr
	s.store = store
	s.debouncer = debouncer
	s.reconciler = reconciler
	s.reconcile = result
	s.wizard = wizard.New(sch, result.DraftDetected)
	s.draftID = result.DraftID
	s.purchased = false

	log.Info("configuration opened", map[string]interface{}{
		"phases":        len(s.wizard.State().Steps) - 1,
		"draftDetected": result.DraftDetected,
		"provenance":    string(result.Provenance),
	})
	return schemaErr
}

// SetValue records a user edit.
func (s *Session) SetValue(fieldID string, value interface{}) error {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()

	if store == nil {
		return ErrNotOpen
	}
	store.SetValue(fieldID, value)
	return nil
}

// Responses returns a snapshot of the current values.
func (s *Session) Responses() models.Responses {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return models.Responses{}
	}
	return s.store.GetAll()
}

// Breakdown prices the current responses synchronously.
func (s *Session) Breakdown() pricing.Breakdown {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return pricing.ComputeBreakdown(nil, nil, 0)
	}
	return pricing.ComputeBreakdown(s.schema, s.store.GetAll(), s.basePrice)
}

// Next validates the current phase and advances when it is complete.
func (s *Session) Next() ([]schema.FieldError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard == nil {
		return nil, ErrNotOpen
	}

	step := s.wizard.Current()
	if step.Kind == wizard.StepPhase {
		if errs := schema.ValidatePhase(*step.Phase, s.store.GetAll()); len(errs) > 0 {
			return errs, nil
		}
	}
	s.wizard.Next()
	return nil, nil
}

func (s *Session) Prev() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard == nil {
		return ErrNotOpen
	}
	s.wizard.Prev()
	return nil
}

// Wizard returns the current wizard state.
func (s *Session) Wizard() wizard.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wizard == nil {
		return wizard.State{}
	}
	return s.wizard.State()
}

// Status summarizes the open level for callers.
type Status struct {
	SessionID   string       `json:"sessionId"`
	PackageID   string       `json:"packageId"`
	LevelKey    string       `json:"levelKey"`
	DraftID     string       `json:"draftId,omitempty"`
	Reconcile   draft.Result `json:"reconcile"`
	Purchased   bool         `json:"purchased"`
	SchemaError string       `json:"schemaError,omitempty"`
	DraftError  string       `json:"draftError,omitempty"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		SessionID: s.id,
		PackageID: s.packageID,
		LevelKey:  s.levelKey,
		DraftID:   s.draftID,
		Reconcile: s.reconcile,
		Purchased: s.purchased,
	}
	if s.schemaErr != nil {
		st.SchemaError = s.schemaErr.Error()
	}
	if s.draftErr != nil {
		st.DraftError = s.draftErr.Error()
	}
	return st
}

// Complete runs checkout from the preview step.
func (s *Session) Complete(ctx context.Context) (*checkout.Result, error) {
	if !s.active.Load() {
		return nil, ErrClosed
	}

	// Notify may read the session, so pending edits are delivered unlocked.
	s.mu.Lock()
	debouncer := s.debouncer
	s.mu.Unlock()
	if debouncer != nil {
		debouncer.Flush()
	}

	s.mu.Lock()
	if s.wizard == nil {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	if !s.wizard.CanComplete() {
		s.mu.Unlock()
		return nil, ErrNotAtPreview
	}
	if s.purchased {
		s.mu.Unlock()
		return nil, ErrPurchased
	}
	gen := s.generation.Load()
	req := checkout.Request{
		PackageID: s.packageID,
		LevelKey:  s.levelKey,
		BasePrice: s.basePrice,
		Schema:    s.schema,
		Responses: s.store.GetAll(),
		DraftID:   s.draftID,
		Guard:     guard{s: s, generation: gen},
	}
	s.mu.Unlock()

	res := s.deps.Orchestrator.Checkout(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation.Load() != gen {
		return res, nil
	}
	switch res.Outcome {
	case checkout.OutcomePurchased:
		s.purchased = true
		s.draftID = ""
	case checkout.OutcomeDraftSaved, checkout.OutcomeInsufficientFunds:
		if res.DraftID != "" {
			s.draftID = res.DraftID
		}
	}
	return res, nil
}

// SwitchLevel drops pending notifications and the cached eligibility of the
// current level, then opens levelKey.
func (s *Session) SwitchLevel(ctx context.Context, levelKey string, basePrice int64) error {
	s.mu.Lock()
	previous := s.levelKey
	if s.debouncer != nil {
		s.debouncer.Cancel()
	}
	s.generation.Add(1)
	s.mu.Unlock()

	if previous != "" && s.deps.Cache != nil {
		if err := s.deps.Cache.Invalidate(ctx, s.packageID, previous); err != nil {
			s.logger.Warn("failed to invalidate cached eligibility", map[string]interface{}{
				"levelKey": previous,
				"error":    err.Error(),
			})
		}
	}
	return s.Open(ctx, levelKey, basePrice)
}

// Eligibility returns the verdict for the open level, cache first.
func (s *Session) Eligibility(ctx context.Context) (*models.EligibilityResult, error) {
	s.mu.Lock()
	levelKey := s.levelKey
	s.mu.Unlock()
	if levelKey == "" {
		return nil, ErrNotOpen
	}

	if s.deps.Cache != nil {
		cached, ok, err := s.deps.Cache.Get(ctx, s.packageID, levelKey)
		if err != nil {
			s.logger.Warn("eligibility cache read failed", map[string]interface{}{"error": err.Error()})
		}
		if ok {
			return cached, nil
		}
	}

	result, err := s.deps.Eligibility.CheckEligibility(ctx, s.packageID, levelKey)
	if err != nil {
		return nil, err
	}
	if s.deps.Cache != nil {
		if err := s.deps.Cache.Put(ctx, s.packageID, levelKey, *result); err != nil {
			s.logger.Warn("failed to cache eligibility", map[string]interface{}{"error": err.Error()})
		}
	}
	return result, nil
}

// Close stops the session. A checkout still in flight will not submit.
func (s *Session) Close() {
	if !s.active.CompareAndSwap(true, false) {
		return
	}
	s.mu.Lock()
	if s.debouncer != nil {
		s.debouncer.Cancel()
	}
	s.mu.Unlock()
	s.logger.Info("session closed", nil)
}

// Active reports whether the session is open.
func (s *Session) Active() bool {
	return s.active.Load()
}

// guard keeps a checkout tied to the level it started on.
type guard struct {
	s          *Session
	generation uint64
}

func (g guard) Active() bool {
	return g.s.active.Load() && g.s.generation.Load() == g.generation
}
