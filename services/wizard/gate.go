package wizard

import "leadwizard/api/services/selection"

// Verdict is the outcome of evaluating the gate of one step. Groups and
// Fields list everything that blocks leaving the step, in declaration order.
type Verdict struct {
	Step   StepID              `json:"step"`
	OK     bool                `json:"ok"`
	Groups []selection.GroupID `json:"groups,omitempty"`
	Fields []string            `json:"fields,omitempty"`
}

// Evaluate decides whether the visitor may leave step from. Every group
// bound to the step must hold at least its minimum and every field bound
// to the step must be valid on its own; fields of later steps are not
// looked at. An unknown step never passes.
func Evaluate(from StepID, st *State, v *Variant) Verdict {
	verdict := Verdict{Step: from}
	step, ok := v.Step(from)
	if !ok {
		return verdict
	}
	for _, gid := range step.Groups {
		g, _ := v.Group(gid)
		if st.Count(gid) < g.Min {
			verdict.Groups = append(verdict.Groups, gid)
		}
	}
	for _, name := range step.Fields {
		if !v.schema.ValidateField(name, st.Value(name)) {
			verdict.Fields = append(verdict.Fields, name)
		}
	}
	verdict.OK = len(verdict.Groups) == 0 && len(verdict.Fields) == 0
	return verdict
}

// CanAdvance reports whether Evaluate passes for from.
func CanAdvance(from StepID, st *State, v *Variant) bool {
	return Evaluate(from, st, v).OK
}
