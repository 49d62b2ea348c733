// Package terminal walks a visitor through a lead-form wizard on the
// command line.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
	"leadwizard/api/services/wizard"
)

const (
	msgIncompleteSelection = "Please choose at least one option in every group"
	msgInvalidField        = "Please check the highlighted fields"
)

// Runner renders a wizard step by step through a PromptDriver.
type Runner struct {
	driver PromptDriver
}

// Option configures a Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver used by the runner.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// New constructs a Runner on the survey driver unless overridden.
func New(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r
}

// Run prompts every step of c until the wizard submits. A step whose gate
// rejects is shown again with the failing groups and fields; so is the
// last step when Submit rejects. Driver errors end the run.
func (r *Runner) Run(ctx context.Context, c *wizard.Controller) (wizard.Payload, error) {
	v := c.Variant()
	if v.Title() != "" {
		if err := r.driver.Info(ctx, v.Title()); err != nil {
			return nil, err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		view := c.View()
		step, ok := v.Step(view.CurrentStep)
		if !ok {
			return nil, fmt.Errorf("%w: %q", wizard.ErrUnknownStep, view.CurrentStep)
		}
		if step.Title != "" {
			if err := r.driver.Info(ctx, step.Title); err != nil {
				return nil, err
			}
		}

		for _, g := range step.Groups {
			if err := r.promptGroup(ctx, c, g); err != nil {
				return nil, err
			}
		}
		for _, name := range step.Fields {
			if err := r.promptField(ctx, c, name); err != nil {
				return nil, err
			}
		}

		if !view.Terminal {
			if err := c.RequestAdvance(); err != nil {
				if err := r.report(ctx, c, err); err != nil {
					return nil, err
				}
			}
			continue
		}

		payload, err := c.Submit()
		if err == nil {
			return payload, nil
		}
		if err := r.report(ctx, c, err); err != nil {
			return nil, err
		}
	}
}

// report prints a validation failure. Any other error is returned.
func (r *Runner) report(ctx context.Context, c *wizard.Controller, err error) error {
	var verr *wizard.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	if verr.Kind == wizard.KindIncompleteSelection {
		labels := make([]string, 0, len(verr.Groups))
		for _, id := range verr.Groups {
			labels = append(labels, groupLabel(c.Variant(), id))
		}
		return r.driver.Info(ctx, fmt.Sprintf("%s: %s", msgIncompleteSelection, strings.Join(labels, ", ")))
	}

	lines := []string{msgInvalidField}
	errs := c.View().FieldErrors
	for _, name := range verr.Fields {
		f, _ := c.Variant().Schema().Field(name)
		lines = append(lines, fmt.Sprintf("  %s: %s", fieldLabel(f), errs[name]))
	}
	return r.driver.Info(ctx, strings.Join(lines, "\n"))
}

// promptGroup asks for the options of one group and applies the answer as
// a set of toggles.
func (r *Runner) promptGroup(ctx context.Context, c *wizard.Controller, id selection.GroupID) error {
	g, ok := c.Variant().Group(id)
	if !ok {
		return fmt.Errorf("%w: %q", selection.ErrUnknownGroup, id)
	}
	current := c.View().Selections[id]

	var want []selection.OptionID
	if len(g.Options) > 0 {
		labels := make([]string, len(g.Options))
		var defaults []int
		for i, o := range g.Options {
			labels[i] = o.Label
			if slices.Contains(current, o.ID) {
				defaults = append(defaults, i)
			}
		}
		picked, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  groupLabel(c.Variant(), id),
			Options:  labels,
			Defaults: defaults,
			Help:     fmt.Sprintf("choose at least %d", g.Min),
		})
		if err != nil {
			return err
		}
		for _, i := range picked {
			want = append(want, g.Options[i].ID)
		}
	} else {
		// No option list configured: ask for the ids themselves.
		for {
			raw, err := r.driver.Input(ctx, InputConfig{
				Message:   groupLabel(c.Variant(), id),
				Default:   formatIDs(current),
				Help:      "comma-separated option ids",
				Validator: func(s string) error { _, err := parseIDs(s); return err },
			})
			if err != nil {
				return err
			}
			ids, err := parseIDs(raw)
			if err == nil {
				want = ids
				break
			}
			if err := r.driver.Info(ctx, err.Error()); err != nil {
				return err
			}
		}
	}

	for _, o := range current {
		if !slices.Contains(want, o) {
			if _, err := c.Toggle(id, o); err != nil {
				return err
			}
		}
	}
	return c.Select(id, want...)
}

// promptField asks for one scalar field, checking the answer the same way
// the step gate will.
func (r *Runner) promptField(ctx context.Context, c *wizard.Controller, name string) error {
	schema := c.Variant().Schema()
	f, ok := schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", fields.ErrUnknownField, name)
	}
	current := c.View().Fields[name]

	if f.Kind == fields.KindConsent {
		accepted, _ := current.(bool)
		answer, err := r.driver.Confirm(ctx, ConfirmConfig{Message: fieldLabel(f), Default: accepted})
		if err != nil {
			return err
		}
		return c.SetField(name, answer)
	}

	def := ""
	if current != nil {
		def = fmt.Sprint(current)
	}
	answer, err := r.driver.Input(ctx, InputConfig{
		Message: fieldLabel(f),
		Default: def,
		Validator: func(s string) error {
			v, err := schema.Normalize(name, s)
			if err != nil {
				return err
			}
			if msg := schema.Message(name, v); msg != "" {
				return errors.New(msg)
			}
			return nil
		},
	})
	if err != nil {
		return err
	}
	return c.SetField(name, answer)
}

func groupLabel(v *wizard.Variant, id selection.GroupID) string {
	if g, ok := v.Group(id); ok && g.Label != "" {
		return g.Label
	}
	return string(id)
}

func fieldLabel(f fields.Field) string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

func parseIDs(s string) ([]selection.OptionID, error) {
	var out []selection.OptionID
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%q is not an option id", part)
		}
		out = append(out, selection.OptionID(n))
	}
	return out, nil
}

func formatIDs(ids []selection.OptionID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(int(id))
	}
	return strings.Join(parts, ", ")
}
