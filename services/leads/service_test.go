package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"leadwizard/api/services/storage"
	"leadwizard/api/services/storage/storagemock"
	"leadwizard/api/services/wizard"
)

// fakeDispatcher records dispatched payloads instead of delivering them.
type fakeDispatcher struct {
	mu    sync.Mutex
	calls []wizard.Payload
	err   error
}

func (d *fakeDispatcher) Dispatch(_ string, payload wizard.Payload) (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return uuid.Nil, d.err
	}
	d.calls = append(d.calls, payload)
	return uuid.New(), nil
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

type testEnv struct {
	router     *mux.Router
	svc        *Service
	dispatcher *fakeDispatcher
	store      *storagemock.StorageMock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		dispatcher: &fakeDispatcher{},
		store:      &storagemock.StorageMock{},
	}
	svc, err := NewService(wizard.DefaultCatalog(), NewSessions(time.Minute, 10), env.dispatcher, env.store)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	env.svc = svc
	env.router = mux.NewRouter()
	svc.LoadRoutes(env.router.PathPrefix("/api/v1").Subrouter())
	return env
}

func (e *testEnv) do(t *testing.T, method, url string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// createSession opens a wizard for variant and returns its id.
func (e *testEnv) createSession(t *testing.T, variant string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/v1/forms/"+variant+"/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"sessionId"`
	}
	decode(t, rec, &resp)
	return resp.SessionID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rec, &body)
	return body.Code
}

var validContact = map[string]any{
	"sender_name":  "Ivan",
	"sender_phone": "+996700000000",
	"sender_email": "ivan@example.com",
	"acceptTerms":  true,
}

func TestNewService_NilDeps(t *testing.T) {
	cat := wizard.DefaultCatalog()
	sess := NewSessions(time.Minute, 1)
	disp := &fakeDispatcher{}
	store := &storagemock.StorageMock{}

	tests := []struct {
		name string
		fn   func() (*Service, error)
	}{
		{"nil catalog", func() (*Service, error) { return NewService(nil, sess, disp, store) }},
		{"nil sessions", func() (*Service, error) { return NewService(cat, nil, disp, store) }},
		{"nil dispatcher", func() (*Service, error) { return NewService(cat, sess, nil, store) }},
		{"nil store", func() (*Service, error) { return NewService(cat, sess, disp, nil) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestHandleListForms(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/v1/forms", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var body struct {
		Forms []formSummary `json:"forms"`
	}
	decode(t, rec, &body)
	ids := make([]string, 0, len(body.Forms))
	for _, f := range body.Forms {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"contact", "service", "smm", "video", "site", "crm"}, ids); diff != "" {
		t.Errorf("forms mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]wizard.StepID{wizard.StepSelection, wizard.StepContact}, body.Forms[1].Steps); diff != "" {
		t.Errorf("service steps mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleGetForm(t *testing.T) {
	env := newTestEnv(t)

	t.Run("unknown variant returns 404", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/forms/nope", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if code := errorCode(t, rec); code != "NOT_FOUND" {
			t.Errorf("expected NOT_FOUND, got %q", code)
		}
	})

	t.Run("describes groups and fields", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/forms/site", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var body map[string]json.RawMessage
		decode(t, rec, &body)
		for _, key := range []string{"id", "title", "steps", "groups", "fields"} {
			if _, ok := body[key]; !ok {
				t.Errorf("response missing %q", key)
			}
		}
		var groups []map[string]any
		if err := json.Unmarshal(body["groups"], &groups); err != nil {
			t.Fatal(err)
		}
		if len(groups) != 3 {
			t.Errorf("expected 3 groups, got %d", len(groups))
		}
	})

	t.Run("contact form has an empty group list", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/forms/contact", nil)
		var body map[string]json.RawMessage
		decode(t, rec, &body)
		if string(body["groups"]) != "[]" {
			t.Errorf("expected empty groups array, got %s", body["groups"])
		}
	})
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.createSession(t, "service")
	base := "/api/v1/sessions/" + id

	// Leaving the selection step with nothing chosen is blocked.
	rec := env.do(t, http.MethodPost, base+"/advance", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("advance: expected 422, got %d", rec.Code)
	}
	var rejected struct {
		Code   string      `json:"code"`
		Groups []string    `json:"groups"`
		View   wizard.View `json:"view"`
	}
	decode(t, rec, &rejected)
	if rejected.Code != "INCOMPLETE_SELECTION" {
		t.Errorf("expected INCOMPLETE_SELECTION, got %q", rejected.Code)
	}
	if diff := cmp.Diff([]string{"business_type", "service_type"}, rejected.Groups); diff != "" {
		t.Errorf("failing groups mismatch (-want +got):\n%s", diff)
	}
	if rejected.View.CurrentStep != wizard.StepSelection {
		t.Errorf("expected to stay on selection, got %q", rejected.View.CurrentStep)
	}

	for _, tg := range []map[string]any{
		{"group": "business_type", "option": 1},
		{"group": "service_type", "option": 7},
		{"group": "service_type", "option": 8},
		{"group": "service_type", "option": 8},
	} {
		if rec := env.do(t, http.MethodPost, base+"/toggle", tg); rec.Code != http.StatusOK {
			t.Fatalf("toggle %v: expected 200, got %d: %s", tg, rec.Code, rec.Body.String())
		}
	}

	rec = env.do(t, http.MethodPost, base+"/advance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("advance: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view wizard.View
	decode(t, rec, &view)
	if view.CurrentStep != wizard.StepContact || !view.Terminal {
		t.Errorf("expected terminal contact step, got %+v", view)
	}

	// Submitting with empty contact fields is rejected and keeps the session.
	rec = env.do(t, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("submit: expected 422, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_FIELD" {
		t.Errorf("expected INVALID_FIELD, got %q", code)
	}

	rec = env.do(t, http.MethodPut, base+"/fields", validContact)
	if rec.Code != http.StatusOK {
		t.Fatalf("fields: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var accepted struct {
		SubmissionID uuid.UUID      `json:"submissionId"`
		Payload      map[string]any `json:"payload"`
	}
	decode(t, rec, &accepted)
	if accepted.SubmissionID == uuid.Nil {
		t.Error("expected a submission id")
	}
	if _, ok := accepted.Payload["acceptTerms"]; ok {
		t.Error("consent must not be part of the payload")
	}
	if diff := cmp.Diff([]any{float64(7)}, accepted.Payload["service_type"]); diff != "" {
		t.Errorf("service_type mismatch (-want +got):\n%s", diff)
	}
	if env.dispatcher.count() != 1 {
		t.Errorf("expected 1 dispatch, got %d", env.dispatcher.count())
	}

	// The session is gone after a successful submit.
	rec = env.do(t, http.MethodPost, base+"/submit", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second submit: expected 404, got %d", rec.Code)
	}
	if env.dispatcher.count() != 1 {
		t.Errorf("expected no second dispatch, got %d", env.dispatcher.count())
	}
}

func TestHandleToggle_ReportsSelection(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/v1/sessions/" + env.createSession(t, "smm")

	var resp struct {
		Selected bool        `json:"selected"`
		View     wizard.View `json:"view"`
	}
	decode(t, env.do(t, http.MethodPost, base+"/toggle", map[string]any{"group": "promotion_type", "option": 3}), &resp)
	if !resp.Selected {
		t.Error("expected option to be selected")
	}
	decode(t, env.do(t, http.MethodPost, base+"/toggle", map[string]any{"group": "promotion_type", "option": 3}), &resp)
	if resp.Selected {
		t.Error("expected option to be deselected")
	}
	if len(resp.View.Selections["promotion_type"]) != 0 {
		t.Errorf("expected empty group, got %v", resp.View.Selections["promotion_type"])
	}
}

func TestHandleRequestStep(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/v1/sessions/" + env.createSession(t, "crm")

	rec := env.do(t, http.MethodPost, base+"/step", map[string]any{"step": "contact"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a jump over an incomplete step, got %d", rec.Code)
	}

	env.do(t, http.MethodPost, base+"/toggle", map[string]any{"group": "business_type", "option": 2})
	env.do(t, http.MethodPost, base+"/toggle", map[string]any{"group": "task_type", "option": 5})

	rec = env.do(t, http.MethodPost, base+"/step", map[string]any{"step": "contact"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view wizard.View
	decode(t, rec, &view)
	if diff := cmp.Diff([]wizard.StepID{wizard.StepSelection}, view.CompletedSteps); diff != "" {
		t.Errorf("completed steps mismatch (-want +got):\n%s", diff)
	}

	rec = env.do(t, http.MethodPost, base+"/step", map[string]any{"step": "payment"})
	if code := errorCode(t, rec); rec.Code != http.StatusBadRequest || code != "UNKNOWN_STEP" {
		t.Errorf("expected 400 UNKNOWN_STEP, got %d %q", rec.Code, code)
	}
}

func TestSessionHandlers_BadRequests(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/v1/sessions/" + env.createSession(t, "service")

	tests := []struct {
		name       string
		method     string
		url        string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"invalid id", http.MethodGet, "/api/v1/sessions/not-a-uuid", nil, http.StatusBadRequest, "INVALID_ID"},
		{"unknown session", http.MethodGet, "/api/v1/sessions/" + uuid.NewString(), nil, http.StatusNotFound, "NOT_FOUND"},
		{"toggle malformed body", http.MethodPost, base + "/toggle", "{", http.StatusBadRequest, "INVALID_BODY"},
		{"toggle missing group", http.MethodPost, base + "/toggle", map[string]any{"option": 1}, http.StatusBadRequest, "INVALID_BODY"},
		{"toggle missing option", http.MethodPost, base + "/toggle", map[string]any{"group": "business_type"}, http.StatusBadRequest, "INVALID_BODY"},
		{"toggle null option", http.MethodPost, base + "/toggle", `{"group":"business_type","option":null}`, http.StatusBadRequest, "INVALID_BODY"},
		{"toggle unknown group", http.MethodPost, base + "/toggle", map[string]any{"group": "colour", "option": 1}, http.StatusBadRequest, "UNKNOWN_GROUP"},
		{"fields unknown name", http.MethodPut, base + "/fields", map[string]any{"sender_name": "Ivan", "fax": "1"}, http.StatusBadRequest, "UNKNOWN_FIELD"},
		{"fields wrong type", http.MethodPut, base + "/fields", map[string]any{"sender_name": 12}, http.StatusBadRequest, "INVALID_BODY"},
		{"step missing", http.MethodPost, base + "/step", map[string]any{}, http.StatusBadRequest, "INVALID_BODY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.url, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if code := errorCode(t, rec); code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, code)
			}
		})
	}

	// A rejected field batch stores nothing.
	var view wizard.View
	decode(t, env.do(t, http.MethodGet, base, nil), &view)
	if view.Fields["sender_name"] != "" {
		t.Errorf("expected sender_name untouched, got %v", view.Fields["sender_name"])
	}
	if len(view.Selections["business_type"]) != 0 {
		t.Errorf("expected no business_type selection, got %v", view.Selections["business_type"])
	}
}

func TestHandleSetFields_EncodedMarkup(t *testing.T) {
	env := newTestEnv(t)
	base := "/api/v1/sessions/" + env.createSession(t, "service")

	rec := env.do(t, http.MethodPut, base+"/fields", map[string]any{
		"sender_name":  "&amp;lt;b&amp;gt;Ivan&amp;lt;/b&amp;gt;",
		"sender_email": "ivan@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var view wizard.View
	decode(t, rec, &view)
	name, _ := view.Fields["sender_name"].(string)
	if strings.ContainsRune(name, '<') || name != "Ivan" {
		t.Errorf("expected sender_name Ivan, got %q", name)
	}
}

func TestHandleCreateSession_Capacity(t *testing.T) {
	env := newTestEnv(t)
	env.svc.sessions = NewSessions(time.Minute, 1)

	env.createSession(t, "contact")
	rec := env.do(t, http.MethodPost, "/api/v1/forms/contact/sessions", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "TOO_MANY_SESSIONS" {
		t.Errorf("expected TOO_MANY_SESSIONS, got %q", code)
	}
}

func TestHandleSubmitForm(t *testing.T) {
	contact := func(extra map[string]any) map[string]any {
		out := map[string]any{}
		for k, v := range validContact {
			out[k] = v
		}
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	tests := []struct {
		name       string
		variant    string
		body       any
		dispatch   error
		wantStatus int
		wantCode   string
		check      func(t *testing.T, payload map[string]any)
	}{
		{
			name:       "contact form accepted",
			variant:    "contact",
			body:       map[string]any{"fields": validContact},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, payload map[string]any) {
				if payload["sender_name"] != "Ivan" {
					t.Errorf("expected sender_name Ivan, got %v", payload["sender_name"])
				}
			},
		},
		{
			name:    "smm form carries quantity",
			variant: "smm",
			body: map[string]any{
				"fields":     contact(map[string]any{"quantity_of_publications": "12"}),
				"selections": map[string]any{"business_type": []int{4}, "promotion_type": []int{1, 2}},
			},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, payload map[string]any) {
				if payload["quantity_of_publications"] != "12" {
					t.Errorf("expected quantity 12, got %v", payload["quantity_of_publications"])
				}
				if diff := cmp.Diff([]any{float64(1), float64(2)}, payload["promotion_type"]); diff != "" {
					t.Errorf("promotion_type mismatch (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:       "encoded markup is stripped",
			variant:    "contact",
			body:       map[string]any{"fields": contact(map[string]any{"sender_name": "&lt;b&gt;Ivan&lt;/b&gt;"})},
			wantStatus: http.StatusAccepted,
			check: func(t *testing.T, payload map[string]any) {
				if payload["sender_name"] != "Ivan" {
					t.Errorf("expected sender_name Ivan, got %v", payload["sender_name"])
				}
			},
		},
		{
			name:       "encoded script leaves name empty",
			variant:    "contact",
			body:       map[string]any{"fields": contact(map[string]any{"sender_name": "&lt;script&gt;alert(1)&lt;/script&gt;"})},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_FIELD",
		},
		{
			name:       "missing selection is rejected first",
			variant:    "video",
			body:       map[string]any{"fields": map[string]any{}, "selections": map[string]any{"business_type": []int{1}}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INCOMPLETE_SELECTION",
		},
		{
			name:       "invalid email",
			variant:    "contact",
			body:       map[string]any{"fields": contact(map[string]any{"sender_email": "nope"})},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "INVALID_FIELD",
		},
		{
			name:       "unknown group",
			variant:    "contact",
			body:       map[string]any{"selections": map[string]any{"business_type": []int{1}}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "UNKNOWN_GROUP",
		},
		{
			name:       "malformed body",
			variant:    "contact",
			body:       "not json",
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_BODY",
		},
		{
			name:       "unknown variant",
			variant:    "nope",
			body:       map[string]any{},
			wantStatus: http.StatusNotFound,
			wantCode:   "NOT_FOUND",
		},
		{
			name:       "dispatch failure",
			variant:    "contact",
			body:       map[string]any{"fields": validContact},
			dispatch:   errors.New("queue full"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.dispatcher.err = tt.dispatch

			rec := env.do(t, http.MethodPost, "/api/v1/forms/"+tt.variant+"/submit", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("expected code %q, got %q", tt.wantCode, code)
				}
			}
			if tt.check != nil {
				var resp struct {
					Payload map[string]any `json:"payload"`
				}
				decode(t, rec, &resp)
				tt.check(t, resp.Payload)
			}
		})
	}
}

func TestHandleListSubmissions(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		url        string
		listErr    error
		wantStatus int
		wantLimit  int
		wantVar    string
	}{
		{name: "defaults", url: "/api/v1/submissions", wantStatus: http.StatusOK, wantLimit: defaultListLimit},
		{name: "variant and limit", url: "/api/v1/submissions?variant=smm&limit=5", wantStatus: http.StatusOK, wantLimit: 5, wantVar: "smm"},
		{name: "limit is capped", url: "/api/v1/submissions?limit=100000", wantStatus: http.StatusOK, wantLimit: maxListLimit},
		{name: "bad limit", url: "/api/v1/submissions?limit=-1", wantStatus: http.StatusBadRequest},
		{name: "storage failure", url: "/api/v1/submissions", listErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			var gotLimit int
			var gotVariant string
			env.store.ListSubmissionsMock = func(_ context.Context, variant string, limit int) ([]storage.Submission, error) {
				gotLimit, gotVariant = limit, variant
				if tt.listErr != nil {
					return nil, tt.listErr
				}
				return []storage.Submission{{ID: uuid.New(), Variant: "smm", Payload: json.RawMessage(`{}`), SubmittedAt: now}}, nil
			}

			rec := env.do(t, http.MethodGet, tt.url, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if gotLimit != tt.wantLimit || gotVariant != tt.wantVar {
				t.Errorf("expected list(%q, %d), got list(%q, %d)", tt.wantVar, tt.wantLimit, gotVariant, gotLimit)
			}
			var body struct {
				Submissions []storage.Submission `json:"submissions"`
			}
			decode(t, rec, &body)
			if len(body.Submissions) != 1 {
				t.Errorf("expected 1 submission, got %d", len(body.Submissions))
			}
		})
	}
}

func TestHandleGetSubmission(t *testing.T) {
	subID := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	tests := []struct {
		name       string
		url        string
		getErr     error
		wantStatus int
	}{
		{name: "invalid id", url: "/api/v1/submissions/xyz", wantStatus: http.StatusBadRequest},
		{name: "not found", url: "/api/v1/submissions/" + subID.String(), getErr: storage.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "wrapped not found", url: "/api/v1/submissions/" + subID.String(), getErr: errors.Join(storage.ErrNotFound, errors.New("no rows")), wantStatus: http.StatusNotFound},
		{name: "storage failure", url: "/api/v1/submissions/" + subID.String(), getErr: errors.New("db down"), wantStatus: http.StatusInternalServerError},
		{name: "found", url: "/api/v1/submissions/" + subID.String(), wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.getErr != nil {
				env.store.GetSubmissionMock = func(context.Context, uuid.UUID) (*storage.Submission, error) {
					return nil, tt.getErr
				}
			}

			rec := env.do(t, http.MethodGet, tt.url, nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus == http.StatusOK {
				var sub storage.Submission
				decode(t, rec, &sub)
				if sub.ID != subID {
					t.Errorf("expected id %s, got %s", subID, sub.ID)
				}
			}
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "req-42" {
		t.Errorf("expected request id to be echoed, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	req.Header.Set("X-Request-ID", string(bytes.Repeat([]byte("x"), maxRequestIDLength+1)))
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Errorf("expected an oversized id to be replaced, got %q", rec.Header().Get("X-Request-ID"))
	}
}
