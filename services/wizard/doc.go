// Package wizard implements a gated multi-step lead form.
//
// A Variant describes the steps of one form, the selection groups each
// step collects and the scalar fields it binds. A Controller walks a
// visitor through the steps: leaving a step requires its gate (Evaluate)
// to pass, direct navigation re-checks every earlier step against the
// current state, and Submit validates everything before handing back the
// assembled Payload. Variants are plain data; the built-in catalog covers
// the site's contact, service, SMM, video, site and CRM forms and more can
// be loaded from YAML.
package wizard
