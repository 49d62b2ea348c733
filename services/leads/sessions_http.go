package leads

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"leadwizard/api/services/selection"
	"leadwizard/api/services/wizard"
)

// sessionID parses the {id} route parameter, answering 400 itself.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id := mux.Vars(r)["id"]
	sid, err := uuid.Parse(id)
	if err != nil {
		slog.Warn("invalid session id", "id", id, "requestId", reqID(r), "error", err)
		writeErrorJSON(w, "INVALID_ID", "invalid session id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return sid, true
}

// HandleGetSession returns the current view of a wizard.
func (s *Service) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var view wizard.View
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		view = c.View()
		return false, nil
	})
	if err != nil {
		writeWizardError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleToggle flips one option of a selection group.
func (s *Service) HandleToggle(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Group  selection.GroupID   `json:"group"`
		Option *selection.OptionID `json:"option"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Group == "" || body.Option == nil {
		slog.Warn("failed to decode toggle body", "id", sid, "requestId", reqID(r), "error", err)
		writeErrorJSON(w, "INVALID_BODY", "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		selected bool
		view     wizard.View
	)
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		var err error
		selected, err = c.Toggle(body.Group, *body.Option)
		view = c.View()
		return false, err
	})
	if err != nil {
		writeWizardError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"selected": selected, "view": view})
}

// HandleSetFields updates one or more field values. Every name and value
// type is checked before any value is stored.
func (s *Service) HandleSetFields(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body map[string]any
	if err := decodeBody(w, r, &body); err != nil {
		slog.Warn("failed to decode fields body", "id", sid, "requestId", reqID(r), "error", err)
		writeErrorJSON(w, "INVALID_BODY", "invalid request body", http.StatusBadRequest)
		return
	}

	var view wizard.View
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		schema := c.Variant().Schema()
		names := sortedKeys(body)
		for _, name := range names {
			if _, err := schema.Normalize(name, body[name]); err != nil {
				return false, err
			}
		}
		// SetField does the normalizing; the pass above only rejects bad names and types.
		for _, name := range names {
			if err := c.SetField(name, body[name]); err != nil {
				return false, err
			}
		}
		view = c.View()
		return false, nil
	})
	if err != nil {
		writeWizardError(w, r, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleAdvance asks the wizard to leave the current step.
func (s *Service) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var view wizard.View
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		err := c.RequestAdvance()
		view = c.View()
		return false, err
	})
	if err != nil {
		writeWizardError(w, r, err, &view)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleRequestStep jumps to a step chosen from the step indicator.
func (s *Service) HandleRequestStep(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	var body struct {
		Step wizard.StepID `json:"step"`
	}
	if err := decodeBody(w, r, &body); err != nil || body.Step == "" {
		slog.Warn("failed to decode step body", "id", sid, "requestId", reqID(r), "error", err)
		writeErrorJSON(w, "INVALID_BODY", "invalid request body", http.StatusBadRequest)
		return
	}

	var view wizard.View
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		err := c.RequestStep(body.Step)
		view = c.View()
		return false, err
	})
	if err != nil {
		writeWizardError(w, r, err, &view)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// HandleSubmitSession submits the wizard. An accepted submission ends the
// session; a rejected one leaves it open for corrections.
func (s *Service) HandleSubmitSession(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	err := s.sessions.Do(sid, func(c *wizard.Controller) (bool, error) {
		return s.submit(w, r, c), nil
	})
	if err != nil {
		writeWizardError(w, r, err, nil)
	}
}
