package storagemock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"leadwizard/api/services/storage"
)

// StorageMock records saved submissions and serves them back. Any Mock
// func that is set replaces the default behaviour.
type StorageMock struct {
	SaveSubmissionMock  func(ctx context.Context, s storage.Submission) error
	GetSubmissionMock   func(ctx context.Context, id uuid.UUID) (*storage.Submission, error)
	ListSubmissionsMock func(ctx context.Context, variant string, limit int) ([]storage.Submission, error)

	mu    sync.Mutex
	saved []storage.Submission
}

func (m *StorageMock) SaveSubmission(ctx context.Context, s storage.Submission) error {
	if m.SaveSubmissionMock != nil {
		return m.SaveSubmissionMock(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return nil
}

func (m *StorageMock) GetSubmission(ctx context.Context, id uuid.UUID) (*storage.Submission, error) {
	if m.GetSubmissionMock != nil {
		return m.GetSubmissionMock(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.saved {
		if s.ID == id {
			return &s, nil
		}
	}
	return &storage.Submission{
		ID:          id,
		Variant:     "contact",
		Payload:     json.RawMessage(`{"sender_name":"Ivan","sender_phone":"+996700000000","sender_email":"a@b.com"}`),
		SubmittedAt: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *StorageMock) ListSubmissions(ctx context.Context, variant string, limit int) ([]storage.Submission, error) {
	if m.ListSubmissionsMock != nil {
		return m.ListSubmissionsMock(ctx, variant, limit)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.Submission{}
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if variant == "" || m.saved[i].Variant == variant {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

// Saved returns a copy of every submission stored through SaveSubmission.
func (m *StorageMock) Saved() []storage.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.Submission(nil), m.saved...)
}
