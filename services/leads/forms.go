package leads

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"leadwizard/api/services/fields"
	"leadwizard/api/services/selection"
	"leadwizard/api/services/wizard"
)

// formSummary is one entry of the form listing.
type formSummary struct {
	ID    string          `json:"id"`
	Title string          `json:"title"`
	Steps []wizard.StepID `json:"steps"`
}

// formDescription is everything a renderer needs to draw a form.
type formDescription struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Steps  []wizard.Step  `json:"steps"`
	Groups []wizard.Group `json:"groups"`
	Fields []fields.Field `json:"fields"`
}

func describe(v *wizard.Variant) formDescription {
	return formDescription{
		ID:     v.ID(),
		Title:  v.Title(),
		Steps:  v.Steps(),
		Groups: nonNil(v.Groups()),
		Fields: nonNil(v.Schema().Fields()),
	}
}

// submitResponse is returned for an accepted submission.
type submitResponse struct {
	SubmissionID uuid.UUID      `json:"submissionId"`
	Payload      wizard.Payload `json:"payload"`
}

// HandleListForms returns every configured form variant.
func (s *Service) HandleListForms(w http.ResponseWriter, r *http.Request) {
	slog.Debug("listing forms", "requestId", reqID(r))

	forms := []formSummary{}
	for _, v := range s.catalog.List() {
		sum := formSummary{ID: v.ID(), Title: v.Title()}
		for _, st := range v.Steps() {
			sum.Steps = append(sum.Steps, st.ID)
		}
		forms = append(forms, sum)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"forms": forms})
}

// HandleGetForm describes one variant: steps, groups with their options
// and minimums, and fields.
func (s *Service) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	v, ok := s.variant(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, describe(v))
}

// HandleCreateSession starts a wizard for the variant and returns its id
// with the initial view.
func (s *Service) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	v, ok := s.variant(w, r)
	if !ok {
		return
	}
	rid := reqID(r)

	id := uuid.New()
	ctrl := wizard.NewController(v, wizard.WithLogger(slog.Default().With("session", id)))
	if err := s.sessions.Add(id, ctrl); err != nil {
		writeWizardError(w, r, err, nil)
		return
	}
	slog.Debug("wizard session created", "id", id, "variant", v.ID(), "requestId", rid)

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"sessionId": id,
		"view":      ctrl.View(),
	})
}

// HandleSubmitForm accepts a whole form in one request, the way the site
// posts it: every field value and every group's chosen options. The data
// is replayed into a fresh wizard and submitted, so the same gates apply
// as for step-by-step sessions.
func (s *Service) HandleSubmitForm(w http.ResponseWriter, r *http.Request) {
	v, ok := s.variant(w, r)
	if !ok {
		return
	}
	rid := reqID(r)

	var body struct {
		Fields     map[string]any                             `json:"fields"`
		Selections map[selection.GroupID][]selection.OptionID `json:"selections"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		slog.Warn("failed to decode request body", "variant", v.ID(), "requestId", rid, "error", err)
		writeErrorJSON(w, "INVALID_BODY", "invalid request body", http.StatusBadRequest)
		return
	}

	ctrl := wizard.NewController(v, wizard.WithLogger(slog.Default().With("requestId", rid)))
	for _, g := range sortedKeys(body.Selections) {
		if err := ctrl.Select(g, body.Selections[g]...); err != nil {
			writeWizardError(w, r, err, nil)
			return
		}
	}
	for _, name := range sortedKeys(body.Fields) {
		if err := ctrl.SetField(name, body.Fields[name]); err != nil {
			writeWizardError(w, r, err, nil)
			return
		}
	}

	s.submit(w, r, ctrl)
}

// submit runs the final validation and hands the payload to the
// dispatcher. It reports whether the submission was accepted.
func (s *Service) submit(w http.ResponseWriter, r *http.Request, ctrl *wizard.Controller) bool {
	rid := reqID(r)
	payload, err := ctrl.Submit()
	if err != nil {
		view := ctrl.View()
		writeWizardError(w, r, err, &view)
		return false
	}

	variant := ctrl.Variant().ID()
	id, err := s.dispatcher.Dispatch(variant, payload)
	if err != nil {
		slog.Error("failed to dispatch submission", "variant", variant, "requestId", rid, "error", err)
		writeErrorJSON(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return false
	}
	slog.Info("lead accepted", "id", id, "variant", variant, "requestId", rid)

	writeJSON(w, r, http.StatusAccepted, submitResponse{SubmissionID: id, Payload: payload})
	return true
}

// variant resolves the {variant} route parameter, answering 404 itself.
func (s *Service) variant(w http.ResponseWriter, r *http.Request) (*wizard.Variant, bool) {
	id := mux.Vars(r)["variant"]
	v, ok := s.catalog.Get(id)
	if !ok {
		slog.Warn("form not found", "variant", id, "requestId", reqID(r))
		writeErrorJSON(w, "NOT_FOUND", "form not found", http.StatusNotFound)
		return nil, false
	}
	return v, true
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
