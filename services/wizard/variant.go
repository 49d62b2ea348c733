package wizard

import (
	"errors"
	"fmt"
	"strings"

	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
)

// ErrInvalidVariant is returned by NewVariant for inconsistent configuration.
var ErrInvalidVariant = errors.New("invalid form variant")

// StepID names one screen of the wizard, e.g. "selection" or "contact".
type StepID string

// Option is one selectable entry of a group. Groups without configured
// options accept any option id; the site loads those lists from the CMS.
type Option struct {
	ID    selection.OptionID `yaml:"id" json:"id"`
	Label string             `yaml:"label" json:"label"`
}

// Group declares a multi-valued selection and its minimum.
type Group struct {
	ID    selection.GroupID `yaml:"id" json:"id"`
	Label string            `yaml:"label,omitempty" json:"label,omitempty"`

	// Min is the number of options that must be chosen (default 1).
	Min     int      `yaml:"min,omitempty" json:"min"`
	Options []Option `yaml:"options,omitempty" json:"options,omitempty"`
}

// HasOption reports whether id is acceptable for the group.
func (g Group) HasOption(id selection.OptionID) bool {
	if len(g.Options) == 0 {
		return true
	}
	for _, o := range g.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Step binds groups and fields to one screen. The gate checks exactly
// these when the visitor leaves the step.
type Step struct {
	ID     StepID              `yaml:"id" json:"id"`
	Title  string              `yaml:"title,omitempty" json:"title,omitempty"`
	Groups []selection.GroupID `yaml:"groups,omitempty" json:"groups,omitempty"`
	Fields []string            `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Config is the declarative form of a variant as written in catalogs and
// YAML files.
type Config struct {
	ID     string         `yaml:"id"`
	Title  string         `yaml:"title"`
	Steps  []Step         `yaml:"steps"`
	Groups []Group        `yaml:"groups"`
	Fields []fields.Field `yaml:"fields"`
}

// Variant is a validated, immutable form configuration. One variant backs
// every wizard of the same form.
type Variant struct {
	id     string
	title  string
	steps  []Step
	groups []Group
	schema *fields.Schema

	stepIndex  map[StepID]int
	groupIndex map[selection.GroupID]int
}

// NewVariant validates cfg and builds the variant.
func NewVariant(cfg Config) (*Variant, error) {
	id := strings.TrimSpace(cfg.ID)
	if id == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidVariant)
	}
	if len(cfg.Steps) == 0 {
		return nil, fmt.Errorf("%w %q: no steps", ErrInvalidVariant, id)
	}

	schema, err := fields.New(cfg.Fields...)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidVariant, id, err)
	}

	v := &Variant{
		id:         id,
		title:      cfg.Title,
		schema:     schema,
		stepIndex:  make(map[StepID]int, len(cfg.Steps)),
		groupIndex: make(map[selection.GroupID]int, len(cfg.Groups)),
	}

	for _, g := range cfg.Groups {
		if g.ID == "" {
			return nil, fmt.Errorf("%w %q: group without id", ErrInvalidVariant, id)
		}
		if _, dup := v.groupIndex[g.ID]; dup {
			return nil, fmt.Errorf("%w %q: duplicate group %q", ErrInvalidVariant, id, g.ID)
		}
		if _, clash := schema.Field(string(g.ID)); clash {
			return nil, fmt.Errorf("%w %q: group %q collides with a field", ErrInvalidVariant, id, g.ID)
		}
		switch {
		case g.Min < 0:
			return nil, fmt.Errorf("%w %q: group %q has negative minimum", ErrInvalidVariant, id, g.ID)
		case g.Min == 0:
			g.Min = 1
		}
		if len(g.Options) > 0 && g.Min > len(g.Options) {
			return nil, fmt.Errorf("%w %q: group %q requires %d of %d options", ErrInvalidVariant, id, g.ID, g.Min, len(g.Options))
		}
		g.Options = append([]Option(nil), g.Options...)
		v.groupIndex[g.ID] = len(v.groups)
		v.groups = append(v.groups, g)
	}

	boundGroups := make(map[selection.GroupID]StepID)
	boundFields := make(map[string]StepID)
	for _, s := range cfg.Steps {
		if s.ID == "" {
			return nil, fmt.Errorf("%w %q: step without id", ErrInvalidVariant, id)
		}
		if _, dup := v.stepIndex[s.ID]; dup {
			return nil, fmt.Errorf("%w %q: duplicate step %q", ErrInvalidVariant, id, s.ID)
		}
		for _, g := range s.Groups {
			if _, ok := v.groupIndex[g]; !ok {
				return nil, fmt.Errorf("%w %q: step %q binds undeclared group %q", ErrInvalidVariant, id, s.ID, g)
			}
			if prev, ok := boundGroups[g]; ok {
				return nil, fmt.Errorf("%w %q: group %q bound to steps %q and %q", ErrInvalidVariant, id, g, prev, s.ID)
			}
			boundGroups[g] = s.ID
		}
		for _, f := range s.Fields {
			if _, ok := schema.Field(f); !ok {
				return nil, fmt.Errorf("%w %q: step %q binds undeclared field %q", ErrInvalidVariant, id, s.ID, f)
			}
			if prev, ok := boundFields[f]; ok {
				return nil, fmt.Errorf("%w %q: field %q bound to steps %q and %q", ErrInvalidVariant, id, f, prev, s.ID)
			}
			boundFields[f] = s.ID
		}
		s.Groups = append([]selection.GroupID(nil), s.Groups...)
		s.Fields = append([]string(nil), s.Fields...)
		v.stepIndex[s.ID] = len(v.steps)
		v.steps = append(v.steps, s)
	}
	for _, g := range v.groups {
		if _, ok := boundGroups[g.ID]; !ok {
			return nil, fmt.Errorf("%w %q: group %q is not bound to a step", ErrInvalidVariant, id, g.ID)
		}
	}

	return v, nil
}

// MustNewVariant is NewVariant for built-in catalogs; it panics on error.
func MustNewVariant(cfg Config) *Variant {
	v, err := NewVariant(cfg)
	if err != nil {
		panic(err)
	}
	return v
}

// ID returns the variant id used in routes and payload routing.
func (v *Variant) ID() string { return v.id }
func (v *Variant) Title() string { return v.title }
func (v *Variant) Schema() *fields.Schema { return v.schema }

// Steps returns the steps in wizard order.
func (v *Variant) Steps() []Step {
	out := make([]Step, len(v.steps))
	copy(out, v.steps)
	return out
}

// Groups returns the selection groups in declaration order.
func (v *Variant) Groups() []Group {
	out := make([]Group, len(v.groups))
	copy(out, v.groups)
	return out
}

// Step looks up a step by id.
func (v *Variant) Step(id StepID) (Step, bool) {
	i, ok := v.stepIndex[id]
	if !ok {
		return Step{}, false
	}
	return v.steps[i], true
}

// Group looks up a selection group by id.
func (v *Variant) Group(id selection.GroupID) (Group, bool) {
	i, ok := v.groupIndex[id]
	if !ok {
		return Group{}, false
	}
	return v.groups[i], true
}

// FirstStep returns the step every wizard starts on.
func (v *Variant) FirstStep() StepID { return v.steps[0].ID }

// IsTerminal reports whether id is the last step.
func (v *Variant) IsTerminal(id StepID) bool {
	i, ok := v.stepIndex[id]
	return ok && i == len(v.steps)-1
}

func (v *Variant) groupIDs() []selection.GroupID {
	ids := make([]selection.GroupID, len(v.groups))
	for i, g := range v.groups {
		ids[i] = g.ID
	}
	return ids
}
