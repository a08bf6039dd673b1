package crm

import (
	"context"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ClientLinkChecker reports whether a lead has been converted
type ClientLinkChecker interface {
	ExistsForLead(ctx context.Context, leadID int64) (bool, error)
}

// LeadService handles lead operations scoped to the caller's hierarchy.
// Every mutation runs its duplicate check, the write and the audit record
// in one transaction.
type LeadService struct {
	leads      crm.LeadRepository
	clients    ClientLinkChecker
	scoper     *access.Scoper
	gate       *access.Gate
	duplicates crm.DuplicateChecker
	recorder   *crm.ActivityRecorder
	tx         shared.TransactionManager
	logger     *zap.Logger
}

// NewLeadService creates a new lead service
func NewLeadService(
	leads crm.LeadRepository,
	clients ClientLinkChecker,
	scoper *access.Scoper,
	gate *access.Gate,
	duplicates crm.DuplicateChecker,
	recorder *crm.ActivityRecorder,
	tx shared.TransactionManager,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		leads:      leads,
		clients:    clients,
		scoper:     scoper,
		gate:       gate,
		duplicates: duplicates,
		recorder:   recorder,
		tx:         tx,
		logger:     logger,
	}
}

// List returns one page of visible leads, newest first
func (s *LeadService) List(ctx context.Context, p identity.Principal, input ListLeadsInput) (*shared.CursorPage[LeadDTO], error) {
	if input.Status != "" && !input.Status.IsValid() {
		return nil, shared.BadRequest("Invalid lead status: " + string(input.Status))
	}
	cursor, err := crm.DecodeLeadCursor(input.Cursor)
	if err != nil {
		return nil, err
	}
	scope, err := s.scoper.LeadScope(ctx, p)
	if err != nil {
		return nil, err
	}

	limit := shared.ClampPageSize(input.Limit)
	leads, err := s.leads.List(ctx, crm.LeadFilter{
		Query:  input.Query,
		Status: input.Status,
		Cursor: cursor,
		Limit:  limit,
		Scope:  scope,
	})
	if err != nil {
		return nil, err
	}

	page := &shared.CursorPage[LeadDTO]{Items: make([]LeadDTO, len(leads))}
	for i, l := range leads {
		page.Items[i] = ToLeadDTO(l)
	}
	if len(leads) == limit {
		last := leads[len(leads)-1]
		page.NextCursor = crm.LeadCursor{CreatedAt: last.CreatedAt, ID: last.ID}.Encode()
	}
	return page, nil
}

// Stats counts the visible leads grouped by status
func (s *LeadService) Stats(ctx context.Context, p identity.Principal) (*LeadStats, error) {
	scope, err := s.scoper.LeadScope(ctx, p)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.leads.CountByStatus(ctx, scope)
	if err != nil {
		return nil, err
	}
	stats := &LeadStats{ByStatus: byStatus}
	for _, n := range byStatus {
		stats.Total += n
	}
	return stats, nil
}

// Create creates a lead owned by p
func (s *LeadService) Create(ctx context.Context, p identity.Principal, input crm.LeadInput) (*LeadDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "create", telemetry.SpanAttrActorID, p.UserID)
	defer span.End()

	lead, err := crm.NewLead(p.UserID, input)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkDuplicate(ctx, lead, 0); err != nil {
			return err
		}
		if err := s.leads.Create(ctx, lead); err != nil {
			return err
		}
		return s.recorder.RecordCreate(ctx, crm.SubjectLead, lead.ID, p.UserID, lead.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrLeadID, lead.ID)
	logger.L(ctx).Info("Lead created", zap.Int64("lead_id", lead.ID))

	dto := ToLeadDTO(lead)
	return &dto, nil
}

// GetByID returns a visible lead. Leads outside the caller's scope are
// reported as not found.
func (s *LeadService) GetByID(ctx context.Context, p identity.Principal, id int64) (*LeadDTO, error) {
	lead, err := s.gate.LeadAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	dto := ToLeadDTO(lead)
	return &dto, nil
}

// Update replaces every editable field of a visible lead
func (s *LeadService) Update(ctx context.Context, p identity.Principal, id int64, input crm.LeadInput) (*LeadDTO, error) {
	return s.mutate(ctx, p, id, "update", func(l *crm.Lead) error { return l.Replace(input) })
}

// Patch changes only the fields present in patch
func (s *LeadService) Patch(ctx context.Context, p identity.Principal, id int64, patch crm.LeadPatch) (*LeadDTO, error) {
	return s.mutate(ctx, p, id, "patch", func(l *crm.Lead) error { return l.ApplyPatch(patch) })
}

func (s *LeadService) mutate(ctx context.Context, p identity.Principal, id int64, method string, change func(*crm.Lead) error) (*LeadDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", method,
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrLeadID, id)
	defer span.End()

	// The scope check and the row being changed are read inside the
	// transaction, which bypasses the query cache.
	var lead *crm.Lead
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.gate.LeadAccessible(ctx, p, id)
		if err != nil {
			return err
		}
		before := found.Snapshot()
		if err := change(found); err != nil {
			return err
		}
		if err := s.checkDuplicate(ctx, found, found.ID); err != nil {
			return err
		}
		if err := s.leads.Update(ctx, found); err != nil {
			return err
		}
		lead = found
		return s.recorder.RecordUpdate(ctx, crm.SubjectLead, found.ID, p.UserID, before, found.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	dto := ToLeadDTO(lead)
	return &dto, nil
}

// Delete removes a visible lead. A lead that was converted to a client is
// kept, since the client's visibility derives from it.
func (s *LeadService) Delete(ctx context.Context, p identity.Principal, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "lead", "delete",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrLeadID, id)
	defer span.End()

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lead, err := s.gate.LeadAccessible(ctx, p, id)
		if err != nil {
			return err
		}
		converted, err := s.clients.ExistsForLead(ctx, id)
		if err != nil {
			return err
		}
		if converted {
			return shared.Conflict("Lead has been converted to a client and cannot be deleted")
		}
		if err := s.leads.Delete(ctx, id); err != nil {
			return err
		}
		return s.recorder.RecordDelete(ctx, crm.SubjectLead, id, p.UserID, lead.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.L(ctx).Info("Lead deleted", zap.Int64("lead_id", id))
	return nil
}

// Activity returns the audit trail of a visible lead, newest first
func (s *LeadService) Activity(ctx context.Context, p identity.Principal, id int64, limit int) ([]*crm.Activity, error) {
	if _, err := s.gate.LeadAccessible(ctx, p, id); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, crm.SubjectLead, id, shared.ClampPageSize(limit))
}

func (s *LeadService) checkDuplicate(ctx context.Context, lead *crm.Lead, excludeID int64) error {
	field, err := s.duplicates.FindDuplicate(ctx, lead, excludeID)
	if err != nil {
		return err
	}
	if field != crm.DuplicateNone {
		s.logger.Debug("Duplicate lead rejected", zap.String("field", string(field)))
		return crm.DuplicateError(field)
	}
	return nil
}
