package crm

import (
	"context"
	"strconv"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LeadUpdater persists a changed lead
type LeadUpdater interface {
	Update(ctx context.Context, lead *crm.Lead) error
}

// ClientService handles clients. A client is visible exactly when the lead
// it was converted from is visible.
type ClientService struct {
	clients  crm.ClientRepository
	leads    LeadUpdater
	scoper   *access.Scoper
	gate     *access.Gate
	recorder *crm.ActivityRecorder
	tx       shared.TransactionManager
	logger   *zap.Logger
}

// NewClientService creates a new client service
func NewClientService(
	clients crm.ClientRepository,
	leads LeadUpdater,
	scoper *access.Scoper,
	gate *access.Gate,
	recorder *crm.ActivityRecorder,
	tx shared.TransactionManager,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		clients:  clients,
		leads:    leads,
		scoper:   scoper,
		gate:     gate,
		recorder: recorder,
		tx:       tx,
		logger:   logger,
	}
}

// List returns one page of visible clients in id order
func (s *ClientService) List(ctx context.Context, p identity.Principal, input ListClientsInput) (*shared.CursorPage[ClientDTO], error) {
	afterID, err := crm.ParseIDCursor(input.Cursor)
	if err != nil {
		return nil, err
	}
	scope, err := s.scoper.ClientScope(ctx, p)
	if err != nil {
		return nil, err
	}
	page := &shared.CursorPage[ClientDTO]{Items: []ClientDTO{}}
	if shared.IsMatchNone(scope) {
		return page, nil
	}

	limit := shared.ClampPageSize(input.Limit)
	clients, err := s.clients.List(ctx, crm.ClientFilter{
		Query:   input.Query,
		AfterID: afterID,
		Limit:   limit,
		Scope:   scope,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range clients {
		page.Items = append(page.Items, ToClientDTO(c))
	}
	if len(clients) == limit {
		page.NextCursor = strconv.FormatInt(clients[len(clients)-1].ID, 10)
	}
	return page, nil
}

// Create converts a visible lead into a client and marks the lead converted
func (s *ClientService) Create(ctx context.Context, p identity.Principal, input CreateClientInput) (*ClientDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "create",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrLeadID, input.LeadID)
	defer span.End()

	// Scope checks and the rows being changed are read inside the
	// transaction, which bypasses the query cache.
	var client *crm.Client
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		lead, err := s.gate.LeadAccessible(ctx, p, input.LeadID)
		if err != nil {
			return err
		}
		c, err := crm.NewClientFromLead(lead, p.UserID, input.ClientInput)
		if err != nil {
			return err
		}
		if err := s.clients.Create(ctx, c); err != nil {
			return err
		}
		client = c
		if err := s.recorder.RecordCreate(ctx, crm.SubjectClient, c.ID, p.UserID, c.Snapshot()); err != nil {
			return err
		}
		return s.markConverted(ctx, p, lead)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.L(ctx).Info("Lead converted to client",
		zap.Int64("lead_id", client.LeadID),
		zap.Int64("client_id", client.ID))

	dto := ToClientDTO(client)
	return &dto, nil
}

func (s *ClientService) markConverted(ctx context.Context, p identity.Principal, lead *crm.Lead) error {
	if lead.Status == crm.LeadStatusConverted {
		return nil
	}
	before := lead.Snapshot()
	status := crm.LeadStatusConverted
	if err := lead.ApplyPatch(crm.LeadPatch{Status: &status}); err != nil {
		return err
	}
	if err := s.leads.Update(ctx, lead); err != nil {
		return err
	}
	return s.recorder.RecordUpdate(ctx, crm.SubjectLead, lead.ID, p.UserID, before, lead.Snapshot())
}

// GetByID returns a visible client
func (s *ClientService) GetByID(ctx context.Context, p identity.Principal, id int64) (*ClientDTO, error) {
	client, err := s.gate.ClientAccessible(ctx, p, id)
	if err != nil {
		return nil, err
	}
	dto := ToClientDTO(client)
	return &dto, nil
}

// Update replaces the editable fields of a visible client
func (s *ClientService) Update(ctx context.Context, p identity.Principal, id int64, input crm.ClientInput) (*ClientDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "update",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrClientID, id)
	defer span.End()

	var client *crm.Client
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		found, err := s.gate.ClientAccessible(ctx, p, id)
		if err != nil {
			return err
		}
		before := found.Snapshot()
		if err := found.Replace(input); err != nil {
			return err
		}
		if err := s.clients.Update(ctx, found); err != nil {
			return err
		}
		client = found
		return s.recorder.RecordUpdate(ctx, crm.SubjectClient, found.ID, p.UserID, before, found.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	dto := ToClientDTO(client)
	return &dto, nil
}

// Delete removes a visible client
func (s *ClientService) Delete(ctx context.Context, p identity.Principal, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "client", "delete",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrClientID, id)
	defer span.End()

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		client, err := s.gate.ClientAccessible(ctx, p, id)
		if err != nil {
			return err
		}
		if err := s.clients.Delete(ctx, id); err != nil {
			return err
		}
		return s.recorder.RecordDelete(ctx, crm.SubjectClient, id, p.UserID, client.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

// Activity returns the audit trail of a visible client, newest first
func (s *ClientService) Activity(ctx context.Context, p identity.Principal, id int64, limit int) ([]*crm.Activity, error) {
	if _, err := s.gate.ClientAccessible(ctx, p, id); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, crm.SubjectClient, id, shared.ClampPageSize(limit))
}
