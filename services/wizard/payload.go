package wizard

import "fmt"

// Payload is the submission sent to the backend: non-transient field
// values plus the snapshot of every selection group under the group id.
type Payload map[string]any

// Assemble builds the payload of st. It expects a validated state and
// fails with ErrAssemblyInvariant instead of dropping or emitting a group
// below its minimum.
func Assemble(st *State, v *Variant) (Payload, error) {
	p := make(Payload, len(v.schema.Fields())+len(v.groups))
	for _, f := range v.schema.Fields() {
		if f.Transient {
			continue
		}
		p[f.Name] = st.Value(f.Name)
	}
	for _, g := range v.groups {
		chosen := st.Snapshot(g.ID)
		if len(chosen) < g.Min {
			return nil, fmt.Errorf("%w: group %q has %d of %d options", ErrAssemblyInvariant, g.ID, len(chosen), g.Min)
		}
		p[string(g.ID)] = chosen
	}
	return p, nil
}
