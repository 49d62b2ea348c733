package wizard

import (
	"fmt"
	"log/slog"
	"maps"

	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
)

// View is the read model handed to the rendering side after every change.
type View struct {
	Variant        string                                     `json:"variant"`
	CurrentStep    StepID                                     `json:"currentStep"`
	CompletedSteps []StepID                                   `json:"completedSteps"`
	Selections     map[selection.GroupID][]selection.OptionID `json:"selections"`
	Fields         map[string]any                             `json:"fields"`
	FieldErrors    map[string]string                          `json:"fieldErrors,omitempty"`
	Terminal       bool                                       `json:"terminal"`
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithObserver registers fn to receive a fresh View after every state change.
func WithObserver(fn func(View)) ControllerOption {
	return func(c *Controller) { c.observer = fn }
}

// WithLogger sets the logger used for navigation and submit events.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// Controller drives one wizard over a variant. It is the only writer of
// its State and is not safe for concurrent use.
type Controller struct {
	variant  *Variant
	state    *State
	observer func(View)
	log      *slog.Logger
}

// NewController starts a wizard on the first step of v.
func NewController(v *Variant, opts ...ControllerOption) *Controller {
	c := &Controller{
		variant: v,
		state:   NewState(v),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("variant", v.id)
	return c
}

// Variant returns the configuration the wizard runs on.
func (c *Controller) Variant() *Variant { return c.variant }

// Toggle flips one option of a group and reports whether it is chosen
// afterwards. No minimums are checked here.
func (c *Controller) Toggle(group selection.GroupID, option selection.OptionID) (bool, error) {
	if err := c.checkOption(group, option); err != nil {
		return false, err
	}
	chosen, err := c.state.selections.Toggle(group, option)
	if err != nil {
		return false, err
	}
	c.notify()
	return chosen, nil
}

// Select makes sure every option is chosen without flipping options that
// already are. Replaying a whole submitted form goes through here.
func (c *Controller) Select(group selection.GroupID, options ...selection.OptionID) error {
	for _, o := range options {
		if err := c.checkOption(group, o); err != nil {
			return err
		}
	}
	for _, o := range options {
		if c.state.selections.Has(group, o) {
			continue
		}
		if _, err := c.state.selections.Toggle(group, o); err != nil {
			return err
		}
	}
	c.notify()
	return nil
}

// SetField stores the normalized value of a field. An error shown for the
// field by an earlier attempt is refreshed against the new value.
func (c *Controller) SetField(name string, value any) error {
	v, err := c.variant.schema.Normalize(name, value)
	if err != nil {
		return err
	}
	c.state.values[name] = v
	if _, shown := c.state.fieldErrors[name]; shown {
		c.refreshFieldError(name)
	}
	c.notify()
	return nil
}

// RequestAdvance moves to the next step when the gate of the current step
// passes. On the last step it does nothing. A rejected request returns a
// *ValidationError and leaves the step and completion untouched.
func (c *Controller) RequestAdvance() error {
	steps := c.variant.steps
	if c.state.current == len(steps)-1 {
		return nil
	}
	from := steps[c.state.current].ID
	vd := Evaluate(from, c.state, c.variant)
	if !vd.OK {
		c.recordFieldErrors(vd.Fields)
		c.log.Debug("advance rejected", "step", from, "groups", vd.Groups, "fields", vd.Fields)
		c.notify()
		return verdictError(vd)
	}
	c.state.completed[from] = struct{}{}
	c.state.current++
	c.log.Debug("advanced", "from", from, "to", steps[c.state.current].ID)
	c.notify()
	return nil
}

// RequestStep jumps directly to target. The first step is always
// reachable. Any later step requires the gate of every earlier step to pass
// against the current state, so a completion flag never outlives the
// selections that earned it.
func (c *Controller) RequestStep(target StepID) error {
	k, ok := c.variant.stepIndex[target]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStep, target)
	}
	for i := 0; i < k; i++ {
		vd := Evaluate(c.variant.steps[i].ID, c.state, c.variant)
		if !vd.OK {
			c.recordFieldErrors(vd.Fields)
			c.log.Debug("step change rejected", "target", target, "step", vd.Step, "groups", vd.Groups)
			c.notify()
			return verdictError(vd)
		}
	}
	for i := 0; i < k; i++ {
		c.state.completed[c.variant.steps[i].ID] = struct{}{}
	}
	c.state.current = k
	c.notify()
	return nil
}

// Submit validates every group of the variant and the whole field schema,
// then assembles the payload. Missing selections take precedence over
// invalid fields. The current step never changes.
func (c *Controller) Submit() (Payload, error) {
	defer c.notify()

	var short []selection.GroupID
	for _, g := range c.variant.groups {
		if c.state.Count(g.ID) < g.Min {
			short = append(short, g.ID)
		}
	}
	res := c.variant.schema.Validate(c.state.values)
	c.state.fieldErrors = res.Errors
	failing := c.failingFields(res)

	if len(short) > 0 {
		return nil, &ValidationError{Kind: KindIncompleteSelection, Groups: short, Fields: failing}
	}
	if !res.Valid {
		return nil, &ValidationError{Kind: KindInvalidField, Fields: failing}
	}

	p, err := Assemble(c.state, c.variant)
	if err != nil {
		c.log.Error("failed to assemble payload", "error", err)
		return nil, fmt.Errorf("submit %s: %w", c.variant.id, err)
	}
	c.log.Info("wizard submitted")
	return p, nil
}

// View returns the current read model.
func (c *Controller) View() View {
	v := View{
		Variant:        c.variant.id,
		CurrentStep:    c.variant.steps[c.state.current].ID,
		CompletedSteps: []StepID{},
		Selections:     make(map[selection.GroupID][]selection.OptionID, len(c.variant.groups)),
		Fields:         c.state.Values(),
		FieldErrors:    maps.Clone(c.state.fieldErrors),
		Terminal:       c.state.current == len(c.variant.steps)-1,
	}
	for _, s := range c.variant.steps {
		if c.state.Completed(s.ID) {
			v.CompletedSteps = append(v.CompletedSteps, s.ID)
		}
	}
	for _, g := range c.variant.groups {
		v.Selections[g.ID] = c.state.Snapshot(g.ID)
	}
	return v
}

func (c *Controller) checkOption(group selection.GroupID, option selection.OptionID) error {
	g, ok := c.variant.Group(group)
	if !ok {
		return fmt.Errorf("%w: %q", selection.ErrUnknownGroup, group)
	}
	if !g.HasOption(option) {
		return fmt.Errorf("%w: %d in group %q", ErrUnknownOption, option, group)
	}
	return nil
}

// recordFieldErrors shows the schema message of each failing step field.
func (c *Controller) recordFieldErrors(names []string) {
	for _, name := range names {
		c.refreshFieldError(name)
	}
}

func (c *Controller) refreshFieldError(name string) {
	msg := c.variant.schema.Message(name, c.state.values[name])
	if msg == "" {
		delete(c.state.fieldErrors, name)
		return
	}
	if c.state.fieldErrors == nil {
		c.state.fieldErrors = make(map[string]string)
	}
	c.state.fieldErrors[name] = msg
}

// failingFields returns the names of res.Errors in schema order.
func (c *Controller) failingFields(res fields.Result) []string {
	if res.Valid {
		return nil
	}
	var names []string
	for _, f := range c.variant.schema.Fields() {
		if _, ok := res.Errors[f.Name]; ok {
			names = append(names, f.Name)
		}
	}
	return names
}

func (c *Controller) notify() {
	if c.observer != nil {
		c.observer(c.View())
	}
}
