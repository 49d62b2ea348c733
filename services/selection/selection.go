package selection

import (
	"errors"
	"fmt"
)

// ErrUnknownGroup is returned when a toggle targets a group the store was
// not created with.
var ErrUnknownGroup = errors.New("unknown selection group")

// GroupID names a multi-valued choice set such as "business_type".
type GroupID string

// OptionID identifies one selectable option inside a group. The backend
// contracts carry numeric ids, so options are integers.
type OptionID int

// group keeps the chosen options in order of addition. index mirrors
// chosen for O(1) membership checks.
type group struct {
	chosen []OptionID
	index  map[OptionID]struct{}
}

// Store holds the chosen options of every selection group of one wizard.
// It performs no validation beyond group existence; minimums are enforced
// by the step gate. Not safe for concurrent use.
type Store struct {
	order  []GroupID
	groups map[GroupID]*group
}

// New creates a store with one empty set per group. Duplicate ids are
// collapsed.
func New(groups ...GroupID) *Store {
	s := &Store{groups: make(map[GroupID]*group, len(groups))}
	for _, id := range groups {
		if _, ok := s.groups[id]; ok {
			continue
		}
		s.order = append(s.order, id)
		s.groups[id] = &group{index: make(map[OptionID]struct{})}
	}
	return s
}

// Toggle removes option from the group if it is chosen and adds it
// otherwise. It reports whether the option is chosen after the call.
func (s *Store) Toggle(id GroupID, option OptionID) (bool, error) {
	g, err := s.lookup(id)
	if err != nil {
		return false, err
	}
	if _, ok := g.index[option]; ok {
		delete(g.index, option)
		for i, v := range g.chosen {
			if v == option {
				g.chosen = append(g.chosen[:i], g.chosen[i+1:]...)
				break
			}
		}
		return false, nil
	}
	g.index[option] = struct{}{}
	g.chosen = append(g.chosen, option)
	return true, nil
}

// Count returns the number of chosen options. Unknown groups count as zero.
func (s *Store) Count(id GroupID) int {
	g, ok := s.groups[id]
	if !ok {
		return 0
	}
	return len(g.chosen)
}

// Has reports whether option is currently chosen in the group.
func (s *Store) Has(id GroupID, option OptionID) bool {
	g, ok := s.groups[id]
	if !ok {
		return false
	}
	_, chosen := g.index[option]
	return chosen
}

// Snapshot returns a copy of the chosen options, oldest addition first.
// An option that was removed and chosen again sits at the end.
func (s *Store) Snapshot(id GroupID) []OptionID {
	g, ok := s.groups[id]
	if !ok {
		return nil
	}
	out := make([]OptionID, len(g.chosen))
	copy(out, g.chosen)
	return out
}

// Reset clears every choice of the group.
func (s *Store) Reset(id GroupID) error {
	g, err := s.lookup(id)
	if err != nil {
		return err
	}
	g.chosen = nil
	clear(g.index)
	return nil
}

// Groups returns the group ids in creation order.
func (s *Store) Groups() []GroupID {
	out := make([]GroupID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Store) lookup(id GroupID) (*group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, id)
	}
	return g, nil
}
