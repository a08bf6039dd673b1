package crm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/crm/backend/internal/domain/shared"
)

// LeadRepository defines the interface for lead persistence.
// Every read takes the caller's scope; an out-of-scope row is reported as
// shared.ErrNotFound.
type LeadRepository interface {
	Create(ctx context.Context, lead *Lead) error
	Update(ctx context.Context, lead *Lead) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64, scope shared.Predicate) (*Lead, error)

	// List returns leads newest first, starting after filter.Cursor
	List(ctx context.Context, filter LeadFilter) ([]*Lead, error)

	// ListIDs returns the ids of every lead matching scope
	ListIDs(ctx context.Context, scope shared.Predicate) ([]int64, error)

	Count(ctx context.Context, scope shared.Predicate) (int64, error)
	CountByStatus(ctx context.Context, scope shared.Predicate) (map[LeadStatus]int64, error)

	// ReassignAssignee moves every lead assigned to from over to to
	ReassignAssignee(ctx context.Context, from, to string) (int64, error)
}

// LeadFilter contains filter options for listing leads
type LeadFilter struct {
	Query  string           `json:"q,omitempty"`
	Status LeadStatus       `json:"status,omitempty"`
	Cursor *LeadCursor      `json:"cursor,omitempty"`
	Limit  int              `json:"limit"`
	Scope  shared.Predicate `json:"scope"`
}

// LeadCursor is the position after the last lead of a page
type LeadCursor struct {
	CreatedAt time.Time `json:"created_at"`
	ID        int64     `json:"id"`
}

// Encode renders the cursor as an opaque token
func (c LeadCursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UTC().UnixNano(), 10) + ":" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeLeadCursor parses a token produced by LeadCursor.Encode
func DecodeLeadCursor(token string) (*LeadCursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, shared.BadRequest("Invalid cursor")
	}
	ts, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, shared.BadRequest("Invalid cursor")
	}
	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, shared.BadRequest("Invalid cursor")
	}
	leadID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, shared.BadRequest("Invalid cursor")
	}
	return &LeadCursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: leadID}, nil
}

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	Create(ctx context.Context, client *Client) error
	Update(ctx context.Context, client *Client) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64, scope shared.Predicate) (*Client, error)

	// List returns clients in ascending id order after filter.AfterID
	List(ctx context.Context, filter ClientFilter) ([]*Client, error)

	// ExistsForLead reports whether any client was converted from leadID
	ExistsForLead(ctx context.Context, leadID int64) (bool, error)
}

// ClientFilter contains filter options for listing clients
type ClientFilter struct {
	Query   string           `json:"q,omitempty"`
	AfterID int64            `json:"after_id,omitempty"`
	Limit   int              `json:"limit"`
	Scope   shared.Predicate `json:"scope"`
}

// ParseIDCursor parses an ascending-id cursor; empty means the first page
func ParseIDCursor(token string) (int64, error) {
	if token == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id < 0 {
		return 0, shared.BadRequest(fmt.Sprintf("Invalid cursor %q", token))
	}
	return id, nil
}
