package service

import (
	"fmt"
	"time"

	"github.com/okian/cadis/internal/domain/model"
)

// transitions lists the states reachable from each non-terminal state.
// Failed is reachable from all of them.
var transitions = map[model.RunState][]model.RunState{
	model.StateIdle:         {model.StateNormalizing, model.StateSimulating},
	model.StateNormalizing:  {model.StateExtracting},
	model.StateExtracting:   {model.StateAggregating},
	model.StateAggregating:  {model.StateClassifying},
	model.StateClassifying:  {model.StateSynthesizing},
	model.StateSynthesizing: {model.StateComplete},
	model.StateSimulating:   {model.StateComplete},
}

func canTransition(from, to model.RunState) bool {
	if from.Terminal() {
		return false
	}
	if to == model.StateFailed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// run tracks one execution through the state machine.
type run struct {
	report       model.RunReport
	now          func() time.Time
	onTransition func(model.Transition)
}

func newRun(id string, now func() time.Time, onTransition func(model.Transition)) *run {
	return &run{
		report: model.RunReport{
			RunID:     id,
			State:     model.StateIdle,
			StartedAt: now().UTC(),
		},
		now:          now,
		onTransition: onTransition,
	}
}

func (r *run) advance(to model.RunState) error {
	from := r.report.State
	if !canTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	t := model.Transition{From: from, To: to, At: r.now().UTC()}
	r.report.Transitions = append(r.report.Transitions, t)
	r.report.State = to
	if to.Terminal() {
		r.report.FinishedAt = t.At
	}
	if r.onTransition != nil {
		r.onTransition(t)
	}
	return nil
}

// fail moves the run to Failed and records err. A run already in a
// terminal state keeps it.
func (r *run) fail(err error) {
	if r.report.State.Terminal() {
		return
	}
	r.report.Error = err.Error()
	_ = r.advance(model.StateFailed)
}
