package leads

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"leadwizard/api/services/storage"
	"leadwizard/api/services/wizard"
)

// Dispatcher hands an accepted payload to the submission transport and
// returns its id without waiting for delivery.
type Dispatcher interface {
	Dispatch(variant string, payload wizard.Payload) (uuid.UUID, error)
}

// Service handles HTTP requests for lead forms. Form wizards live in the
// session registry; accepted payloads go to the dispatcher and are read
// back through storage.
type Service struct {
	catalog    *wizard.Catalog
	sessions   *Sessions
	dispatcher Dispatcher
	storage    storage.Storage
}

// NewService creates a lead Service.
func NewService(catalog *wizard.Catalog, sessions *Sessions, dispatcher Dispatcher, store storage.Storage) (*Service, error) {
	if catalog == nil {
		return nil, fmt.Errorf("service: catalog cannot be nil")
	}
	if sessions == nil {
		return nil, fmt.Errorf("service: sessions cannot be nil")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("service: dispatcher cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("service: store cannot be nil")
	}
	return &Service{catalog: catalog, sessions: sessions, dispatcher: dispatcher, storage: store}, nil
}

type ctxKey int

const requestIDKey ctxKey = iota

// maxRequestIDLength caps client-supplied request ids.
const maxRequestIDLength = 64

// requestIDMiddleware tags every request with an id, reusing X-Request-ID
// when the caller sent a sane one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// jsonMiddleware sets the Content-Type header to application/json
func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Service) LoadRoutes(parentRouter *mux.Router) {
	parentRouter.Use(requestIDMiddleware)

	forms := parentRouter.PathPrefix("/forms").Subrouter()
	forms.StrictSlash(false)
	forms.Use(jsonMiddleware)
	forms.HandleFunc("", s.HandleListForms).Methods("GET")
	forms.HandleFunc("/{variant}", s.HandleGetForm).Methods("GET")
	forms.HandleFunc("/{variant}/sessions", s.HandleCreateSession).Methods("POST")
	forms.HandleFunc("/{variant}/submit", s.HandleSubmitForm).Methods("POST")

	sessions := parentRouter.PathPrefix("/sessions").Subrouter()
	sessions.StrictSlash(false)
	sessions.Use(jsonMiddleware)
	sessions.HandleFunc("/{id}", s.HandleGetSession).Methods("GET")
	sessions.HandleFunc("/{id}/toggle", s.HandleToggle).Methods("POST")
	sessions.HandleFunc("/{id}/fields", s.HandleSetFields).Methods("PUT")
	sessions.HandleFunc("/{id}/advance", s.HandleAdvance).Methods("POST")
	sessions.HandleFunc("/{id}/step", s.HandleRequestStep).Methods("POST")
	sessions.HandleFunc("/{id}/submit", s.HandleSubmitSession).Methods("POST")

	submissions := parentRouter.PathPrefix("/submissions").Subrouter()
	submissions.StrictSlash(false)
	submissions.Use(jsonMiddleware)
	submissions.HandleFunc("", s.HandleListSubmissions).Methods("GET")
	submissions.HandleFunc("/{id}", s.HandleGetSubmission).Methods("GET")
}
