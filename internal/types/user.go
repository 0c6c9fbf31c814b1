package types

import (
	"time"

	"github.com/google/uuid"
)

// User is the acting user of a recommendation request. The pipeline only
// reads these attributes; account lifecycle is owned elsewhere.
type User struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	IsActive bool      `json:"is_active"`
}

// SearchHistory is one address the user searched for, ordered by time.
type SearchHistory struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSignals bundles the per-user inputs of the scoring step: interest
// marks, search history and the derived preferred-type set.
type UserSignals struct {
	InterestedPlaceIDs map[string]struct{}
	SearchHistory      []SearchHistory
	PreferredTypes     map[string]struct{}
}
