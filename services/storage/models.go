package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Submission is one accepted lead as handed to the backend. Payload is the
// assembled wizard payload, kept as raw JSON so every form variant shares
// one table.
type Submission struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Variant     string          `json:"variant" db:"variant"`
	Payload     json.RawMessage `json:"payload" db:"payload"`
	SubmittedAt time.Time       `json:"submittedAt" db:"submitted_at"`
}
