package shared

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the signed-in user as resolved from the session.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Profile is the durable per-user profile owned by the data service.
// LastActiveCompanyID is the saved company preference restored across sessions.
type Profile struct {
	UserID              uuid.UUID
	DisplayName         string
	Email               string
	LastActiveCompanyID *uuid.UUID
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
