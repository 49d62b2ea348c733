package wizard

import (
	"errors"
	"fmt"
	"strings"

	"leadwizard/api/services/selection"
)

var (
	// ErrIncompleteSelection matches validation errors caused by a group
	// below its minimum.
	ErrIncompleteSelection = errors.New("incomplete selection")
	// ErrInvalidField matches validation errors caused by rejected field input.
	ErrInvalidField = errors.New("invalid field")
	// ErrAssemblyInvariant signals a payload that could not be built from a
	// state the validation accepted. It is a configuration bug, never a
	// visitor mistake.
	ErrAssemblyInvariant = errors.New("payload assembly invariant violated")
	// ErrUnknownStep is returned for a step id the variant does not declare.
	ErrUnknownStep = errors.New("unknown step")
	// ErrUnknownOption is returned when a toggle names an option outside the
	// group's configured list.
	ErrUnknownOption = errors.New("unknown option")
)

// Kind classifies a recoverable validation failure.
type Kind string

const (
	KindIncompleteSelection Kind = "incomplete_selection"
	KindInvalidField        Kind = "invalid_field"
)

// ValidationError is returned when the gate or submit rejects the current
// state. The wizard stays usable; the visitor corrects input and retries.
type ValidationError struct {
	Kind   Kind
	Step   StepID
	Groups []selection.GroupID
	Fields []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	switch e.Kind {
	case KindIncompleteSelection:
		b.WriteString("incomplete selection")
	default:
		b.WriteString("invalid field input")
	}
	if e.Step != "" {
		fmt.Fprintf(&b, " on step %q", e.Step)
	}
	if len(e.Groups) > 0 {
		fmt.Fprintf(&b, ": groups %v", e.Groups)
	}
	if len(e.Fields) > 0 {
		fmt.Fprintf(&b, ": fields %v", e.Fields)
	}
	return b.String()
}

// Is lets errors.Is match the kind sentinels.
func (e *ValidationError) Is(target error) bool {
	switch target {
	case ErrIncompleteSelection:
		return e.Kind == KindIncompleteSelection
	case ErrInvalidField:
		return e.Kind == KindInvalidField
	}
	return false
}

func verdictError(vd Verdict) *ValidationError {
	kind := KindInvalidField
	if len(vd.Groups) > 0 {
		kind = KindIncompleteSelection
	}
	return &ValidationError{Kind: kind, Step: vd.Step, Groups: vd.Groups, Fields: vd.Fields}
}
