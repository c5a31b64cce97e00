package storage

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and audit timestamps shared by every
// persisted record.
type BaseEntity struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch refreshes the modification timestamp before a rewrite.
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}
