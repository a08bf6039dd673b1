package crm

import (
	"context"
	"encoding/json"
	"time"
)

// SubjectType is the kind of record an activity describes
type SubjectType string

const (
	SubjectLead   SubjectType = "lead"
	SubjectUser   SubjectType = "user"
	SubjectClient SubjectType = "client"
)

// Action is the mutation an activity records
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Activity is an append-only audit record.
// Details holds a snapshot for CREATE/DELETE and an RFC 6902 patch for UPDATE.
type Activity struct {
	ID          int64           `json:"id"`
	SubjectType SubjectType     `json:"subject_type"`
	SubjectID   int64           `json:"subject_id"`
	Action      Action          `json:"action"`
	ActorID     int64           `json:"actor_id"`
	Details     json.RawMessage `json:"details"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ActivityRepository appends and lists activities. It never updates or deletes.
type ActivityRepository interface {
	Append(ctx context.Context, activity *Activity) error

	// ListBySubject returns activities newest first
	ListBySubject(ctx context.Context, subject SubjectType, subjectID int64, limit int) ([]*Activity, error)
}
