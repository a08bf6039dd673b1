package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wI2L/jsondiff"
)

// ActivityRecorder turns mutations into audit records.
// Callers run it inside the same transaction as the mutation it describes.
type ActivityRecorder struct {
	repo ActivityRepository
	now  func() time.Time
}

// NewActivityRecorder creates a recorder writing to repo
func NewActivityRecorder(repo ActivityRepository) *ActivityRecorder {
	return &ActivityRecorder{repo: repo, now: time.Now}
}

// Record appends a prepared activity
func (r *ActivityRecorder) Record(ctx context.Context, activity *Activity) error {
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = r.now()
	}
	if len(activity.Details) == 0 {
		activity.Details = json.RawMessage("{}")
	}
	if err := r.repo.Append(ctx, activity); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// RecordCreate stores a snapshot of a created record
func (r *ActivityRecorder) RecordCreate(ctx context.Context, subject SubjectType, subjectID, actorID int64, snapshot any) error {
	return r.recordSnapshot(ctx, subject, subjectID, actorID, ActionCreate, snapshot)
}

// RecordDelete stores the last snapshot of a deleted record
func (r *ActivityRecorder) RecordDelete(ctx context.Context, subject SubjectType, subjectID, actorID int64, snapshot any) error {
	return r.recordSnapshot(ctx, subject, subjectID, actorID, ActionDelete, snapshot)
}

// RecordUpdate stores the JSON patch turning before into after
func (r *ActivityRecorder) RecordUpdate(ctx context.Context, subject SubjectType, subjectID, actorID int64, before, after any) error {
	patch, err := jsondiff.Compare(before, after)
	if err != nil {
		return fmt.Errorf("diff %s %d: %w", subject, subjectID, err)
	}
	details := json.RawMessage("[]")
	if len(patch) > 0 {
		if details, err = json.Marshal(patch); err != nil {
			return fmt.Errorf("marshal patch: %w", err)
		}
	}
	return r.Record(ctx, &Activity{
		SubjectType: subject,
		SubjectID:   subjectID,
		Action:      ActionUpdate,
		ActorID:     actorID,
		Details:     details,
	})
}

// History lists activities of one subject, newest first
func (r *ActivityRecorder) History(ctx context.Context, subject SubjectType, subjectID int64, limit int) ([]*Activity, error) {
	return r.repo.ListBySubject(ctx, subject, subjectID, limit)
}

func (r *ActivityRecorder) recordSnapshot(ctx context.Context, subject SubjectType, subjectID, actorID int64, action Action, snapshot any) error {
	details, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return r.Record(ctx, &Activity{
		SubjectType: subject,
		SubjectID:   subjectID,
		Action:      action,
		ActorID:     actorID,
		Details:     details,
	})
}
