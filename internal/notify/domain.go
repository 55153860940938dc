// internal/notify/domain.go
package notify

import (
	"time"

	"github.com/google/uuid"
)

// Kind labels what a notification is about.
type Kind string

const (
	KindRequested Kind = "REQUESTED"
	KindApproved  Kind = "APPROVED"
	KindRejected  Kind = "REJECTED"
	KindReturned  Kind = "RETURNED"
	KindReissued  Kind = "REISSUED"
)

// Notification is a user-facing record of a lifecycle event. Records are
// written and listed here; how they reach the user is someone else's job.
type Notification struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	IssueID   *uuid.UUID `json:"issue_id,omitempty"`
	Kind      Kind       `json:"kind"`
	Message   string     `json:"message"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}
