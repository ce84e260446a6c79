// Package statemachine validates status transitions of investments,
// withdrawals and spin results against fixed per-entity tables. It never
// mutates anything; callers apply the returned result.
package statemachine

import (
	"fmt"
	"sort"
	"time"

	"finengine/models"
)

// Subject is the current persisted view of the entity a transition targets
type Subject struct {
	Type    models.EntityType
	ID      int64
	Status  string
	Version int64

	// DurationMonths is only read for investment approvals
	DurationMonths int
}

// Result describes the outcome of a valid transition
type Result struct {
	From      string
	To        string
	StartDate *time.Time
	EndDate   *time.Time
}

// Engine validates transitions. The zero value uses time.Now in UTC.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an engine with the given clock. A nil clock uses
// time.Now.
func NewEngine(now func() time.Time) *Engine {
	return &Engine{now: now}
}

func (e *Engine) clock() time.Time {
	if e == nil || e.now == nil {
		return time.Now().UTC()
	}
	return e.now().UTC()
}

// Transition checks whether action is allowed for subject at
// expectedVersion. A nil subject means the entity does not exist. The checks
// run in order: existence, retry of a completed action, stale version, and
// finally the transition table.
func (e *Engine) Transition(subject *Subject, expectedVersion int64, action Action) (*Result, error) {
	if subject == nil {
		return nil, fmt.Errorf("%w: entity does not exist", models.ErrNotFound)
	}

	t, ok := tables[subject.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity type %q", models.ErrValidation, subject.Type)
	}
	edges, ok := t[subject.Status]
	if !ok {
		return nil, fmt.Errorf("%w: unknown %s status %q", models.ErrValidation, subject.Type, subject.Status)
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", models.ErrValidation, action)
	}

	if len(edges) == 0 {
		if target, ok := t.targetOf(action); ok && target == subject.Status {
			return nil, fmt.Errorf("%w: %s %d is already %s", models.ErrAlreadyProcessed, subject.Type, subject.ID, subject.Status)
		}
	}

	if subject.Version != expectedVersion {
		return nil, fmt.Errorf("%w: %s %d is at version %d, caller has %d",
			models.ErrConcurrentModification, subject.Type, subject.ID, subject.Version, expectedVersion)
	}

	to, ok := edges[action]
	if !ok {
		return nil, fmt.Errorf("%w: cannot %s %s %d in status %s",
			models.ErrInvalidTransition, action, subject.Type, subject.ID, subject.Status)
	}

	result := &Result{From: subject.Status, To: to}
	if subject.Type == models.EntityTypeInvestment && action == ActionApprove {
		if subject.DurationMonths <= 0 {
			return nil, fmt.Errorf("%w: investment %d has no duration", models.ErrValidation, subject.ID)
		}
		start := e.clock()
		end := AddMonths(start, subject.DurationMonths)
		result.StartDate = &start
		result.EndDate = &end
	}
	return result, nil
}

// AllowedActions lists the actions enabled from status, sorted by name.
// Unknown entity types or statuses yield nil.
func AllowedActions(entityType models.EntityType, status string) []Action {
	t, ok := tables[entityType]
	if !ok {
		return nil
	}
	edges, ok := t[status]
	if !ok {
		return nil
	}
	actions := make([]Action, 0, len(edges))
	for a := range edges {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// IsTerminal reports whether no action is enabled from status
func IsTerminal(entityType models.EntityType, status string) bool {
	t, ok := tables[entityType]
	if !ok {
		return false
	}
	edges, ok := t[status]
	return ok && len(edges) == 0
}

// AddMonths adds calendar months to t. When the day does not exist in the
// target month it is clamped to that month's last day, so Jan 31 + 1 month
// is Feb 28 (or 29).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}
