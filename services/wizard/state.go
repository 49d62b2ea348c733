package wizard

import (
	"maps"

	"leadwizard/api/services/selection"
)

// State is the mutable data of one wizard: where the visitor is, what was
// completed, the field values and the selections. It is owned by a single
// Controller and never shared.
type State struct {
	current     int
	completed   map[StepID]struct{}
	values      map[string]any
	fieldErrors map[string]string
	selections  *selection.Store
}

// NewState returns the initial state for v: first step, nothing completed,
// schema defaults and empty groups.
func NewState(v *Variant) *State {
	return &State{
		completed:  make(map[StepID]struct{}),
		values:     v.schema.Defaults(),
		selections: selection.New(v.groupIDs()...),
	}
}

// Value returns the current value of a field, nil if it is not declared.
func (s *State) Value(name string) any { return s.values[name] }

// Values returns a copy of every field value.
func (s *State) Values() map[string]any { return maps.Clone(s.values) }

// Count returns the number of chosen options in a group.
func (s *State) Count(group selection.GroupID) int { return s.selections.Count(group) }

// Snapshot returns the chosen options of a group in order of addition.
func (s *State) Snapshot(group selection.GroupID) []selection.OptionID {
	return s.selections.Snapshot(group)
}

// Completed reports whether the gate has passed for step.
func (s *State) Completed(step StepID) bool {
	_, ok := s.completed[step]
	return ok
}
