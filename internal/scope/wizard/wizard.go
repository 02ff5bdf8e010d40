// Package wizard tracks progress through the phases of a package level.
package wizard

import (
	"obsp-workers/internal/models"
)

// StepKind distinguishes phase steps from the terminal preview.
type StepKind string

const (
	StepPhase   StepKind = "phase"
	StepPreview StepKind = "preview"
)

// Step is one wizard page. Phase is set only for StepPhase.
type Step struct {
	Kind  StepKind      `json:"kind"`
	Phase *models.Phase `json:"phase,omitempty"`
}

// State is a snapshot of the wizard.
type State struct {
	Steps        []Step `json:"steps"`
	CurrentIndex int    `json:"currentIndex"`
}

// Wizard is a linear state machine over schema phases plus a final preview.
// Navigation clamps at both ends; it is never an error.
type Wizard struct {
	steps   []Step
	current int
}

// New builds steps from s. When draftDetected the wizard starts on preview.
func New(s *models.Schema, draftDetected bool) *Wizard {
	var phases []models.Phase
	if s != nil {
		phases = s.Phases
	}

	steps := make([]Step, 0, len(phases)+1)
	for i := range phases {
		phase := phases[i]
		steps = append(steps, Step{Kind: StepPhase, Phase: &phase})
	}
	steps = append(steps, Step{Kind: StepPreview})

	w := &Wizard{steps: steps}
	if draftDetected {
		w.current = len(steps) - 1
	}
	return w
}

// Next advances one step. It reports whether the index moved.
func (w *Wizard) Next() bool {
	if w.current >= len(w.steps)-1 {
		return false
	}
	w.current++
	return true
}

// Prev goes back one step. It reports whether the index moved.
func (w *Wizard) Prev() bool {
	if w.current <= 0 {
		return false
	}
	w.current--
	return true
}

func (w *Wizard) Current() Step {
	return w.steps[w.current]
}

func (w *Wizard) Index() int {
	return w.current
}

func (w *Wizard) Len() int {
	return len(w.steps)
}

// AtPreview reports whether the terminal step is showing.
func (w *Wizard) AtPreview() bool {
	return w.Current().Kind == StepPreview
}

// CanComplete reports whether checkout may be started from here.
func (w *Wizard) CanComplete() bool {
	return w.AtPreview()
}

// State returns a copy of the wizard state.
func (w *Wizard) State() State {
	steps := make([]Step, len(w.steps))
	copy(steps, w.steps)
	return State{Steps: steps, CurrentIndex: w.current}
}
