package identity

import (
	"context"
	"errors"
	"strconv"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/crm"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// LeadReassigner moves leads from one assignee to another
type LeadReassigner interface {
	ReassignAssignee(ctx context.Context, from, to string) (int64, error)
}

// UserService handles user management within the caller's hierarchy
type UserService struct {
	userRepo identity.UserRepository
	leads    LeadReassigner
	resolver access.HierarchyResolver
	scoper   *access.Scoper
	gate     *access.Gate
	hasher   PasswordHasher
	recorder *crm.ActivityRecorder
	tx       shared.TransactionManager
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo identity.UserRepository,
	leads LeadReassigner,
	resolver access.HierarchyResolver,
	scoper *access.Scoper,
	gate *access.Gate,
	hasher PasswordHasher,
	recorder *crm.ActivityRecorder,
	tx shared.TransactionManager,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		leads:    leads,
		resolver: resolver,
		scoper:   scoper,
		gate:     gate,
		hasher:   hasher,
		recorder: recorder,
		tx:       tx,
		logger:   logger,
	}
}

// List returns one page of the users visible to p, ordered by id
func (s *UserService) List(ctx context.Context, p identity.Principal, input ListUsersInput) (*shared.CursorPage[UserDTO], error) {
	afterID, err := crm.ParseIDCursor(input.Cursor)
	if err != nil {
		return nil, err
	}
	scope, err := s.scoper.UserScope(ctx, p)
	if err != nil {
		return nil, err
	}

	limit := shared.ClampPageSize(input.Limit)
	users, err := s.userRepo.List(ctx, identity.UserFilter{
		Query:   input.Query,
		AfterID: afterID,
		Limit:   limit,
		Scope:   scope,
	})
	if err != nil {
		return nil, err
	}

	page := &shared.CursorPage[UserDTO]{Items: make([]UserDTO, len(users))}
	for i, u := range users {
		page.Items[i] = ToUserDTO(u)
	}
	if len(users) == limit {
		page.NextCursor = strconv.FormatInt(users[len(users)-1].ID, 10)
	}
	return page, nil
}

// Create creates a user below p. Only ranks strictly lower than the caller's
// may be created, under a manager inside the caller's branch.
func (s *UserService) Create(ctx context.Context, p identity.Principal, input CreateUserInput) (*UserDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "create",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrActorRank, p.RoleRank)
	defer span.End()

	rank := identity.RankAgent
	if input.RoleRank != nil {
		rank = *input.RoleRank
	}
	user, err := identity.NewUser(input.Name, input.Email, rank, input.ManagerID)
	if err != nil {
		return nil, err
	}
	if input.DepartmentID != nil {
		user.SetDepartment(input.DepartmentID)
	}
	if err := identity.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user.SetPasswordHash(hash)

	// Guards run inside the transaction so they read the hierarchy from the
	// database, never from the query cache.
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.gate.CheckCreate(ctx, p, access.CreateUserRequest{
			RoleRank:  input.RoleRank,
			ManagerID: input.ManagerID,
		}); err != nil {
			return err
		}
		if err := s.ensureEmailFree(ctx, user.Email, 0); err != nil {
			return err
		}
		if err := s.ensureManagerExists(ctx, input.ManagerID); err != nil {
			return err
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return err
		}
		return s.recorder.RecordCreate(ctx, crm.SubjectUser, user.ID, p.UserID, user.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	logger.L(ctx).Info("User created",
		zap.Int64("created_user_id", user.ID),
		zap.Int("role_rank", user.RoleRank))

	dto := ToUserDTO(user)
	return &dto, nil
}

// GetByID returns a user inside p's hierarchy
func (s *UserService) GetByID(ctx context.Context, p identity.Principal, id int64) (*UserDTO, error) {
	if err := s.gate.CheckAccess(ctx, p, id); err != nil {
		return nil, err
	}
	user, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := ToUserDTO(user)
	return &dto, nil
}

// Update replaces every editable field of a user
func (s *UserService) Update(ctx context.Context, p identity.Principal, id int64, input UpdateUserInput) (*UserDTO, error) {
	return s.Patch(ctx, p, id, input.toPatch())
}

// Patch changes the fields set in input. Changing the manager is rejected
// when it would close a reporting cycle, for administrators too.
func (s *UserService) Patch(ctx context.Context, p identity.Principal, id int64, input PatchUserInput) (*UserDTO, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "update",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrUserID, id)
	defer span.End()

	var hash string
	if input.Password != nil {
		if err := identity.ValidatePassword(*input.Password); err != nil {
			return nil, err
		}
		var err error
		if hash, err = s.hasher.Hash(*input.Password); err != nil {
			return nil, err
		}
	}

	var user *identity.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.gate.CheckAccess(ctx, p, id); err != nil {
			return err
		}
		found, err := s.find(ctx, id)
		if err != nil {
			return err
		}

		in := input.withoutNoops(found)
		if err := s.gate.CheckUpdate(ctx, p, id, in.RoleRank, in.ManagerID); err != nil {
			return err
		}
		if in.ClearManager && !p.IsAdmin() {
			return shared.Forbidden(access.MsgManagerOutside)
		}
		before := found.Snapshot()
		if err := s.apply(ctx, found, in, hash); err != nil {
			return err
		}
		if err := s.userRepo.Update(ctx, found); err != nil {
			return err
		}
		user = found
		return s.recorder.RecordUpdate(ctx, crm.SubjectUser, found.ID, p.UserID, before, found.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	dto := ToUserDTO(user)
	return &dto, nil
}

// apply sets the patched fields on user. hash is the already computed hash
// of input.Password.
func (s *UserService) apply(ctx context.Context, user *identity.User, input PatchUserInput, hash string) error {
	if input.Name != nil {
		if err := user.SetName(*input.Name); err != nil {
			return err
		}
	}
	if input.Email != nil {
		if err := user.SetEmail(*input.Email); err != nil {
			return err
		}
		if err := s.ensureEmailFree(ctx, user.Email, user.ID); err != nil {
			return err
		}
	}
	if input.RoleRank != nil {
		if err := user.SetRoleRank(*input.RoleRank); err != nil {
			return err
		}
	}
	if input.managerChanged() {
		if err := s.gate.CheckNoCycle(ctx, user.ID, input.ManagerID); err != nil {
			return err
		}
		if err := s.ensureManagerExists(ctx, input.ManagerID); err != nil {
			return err
		}
		if err := user.SetManager(input.ManagerID); err != nil {
			return err
		}
	}
	if input.DepartmentID != nil {
		user.SetDepartment(input.DepartmentID)
	}
	if input.Status != nil {
		switch *input.Status {
		case identity.UserStatusActive:
			user.Activate()
		case identity.UserStatusInactive:
			user.Deactivate()
		default:
			return shared.BadRequest("Invalid user status: " + string(*input.Status))
		}
	}
	if input.Password != nil {
		user.SetPasswordHash(hash)
	}
	return nil
}

// Delete removes a user. Its leads and direct reports move to its manager.
func (s *UserService) Delete(ctx context.Context, p identity.Principal, id int64) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "delete",
		telemetry.SpanAttrActorID, p.UserID, telemetry.SpanAttrUserID, id)
	defer span.End()

	if id == p.UserID {
		return shared.BadRequest("You cannot delete your own account")
	}
	var moved, reparented int64
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.gate.CheckAccess(ctx, p, id); err != nil {
			return err
		}
		user, err := s.find(ctx, id)
		if err != nil {
			return err
		}
		heir := ""
		if user.ManagerID != nil {
			heir = strconv.FormatInt(*user.ManagerID, 10)
		}
		if moved, err = s.leads.ReassignAssignee(ctx, strconv.FormatInt(id, 10), heir); err != nil {
			return err
		}
		if reparented, err = s.userRepo.ReassignSubordinates(ctx, id, user.ManagerID); err != nil {
			return err
		}
		if err := s.userRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.recorder.RecordDelete(ctx, crm.SubjectUser, id, p.UserID, user.Snapshot())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	logger.L(ctx).Info("User deleted",
		zap.Int64("deleted_user_id", id),
		zap.Int64("leads_reassigned", moved),
		zap.Int64("subordinates_reassigned", reparented))
	return nil
}

// Subordinates returns the resolved hierarchy of a user inside p's branch
func (s *UserService) Subordinates(ctx context.Context, p identity.Principal, id int64) ([]int64, error) {
	if err := s.gate.CheckAccess(ctx, p, id); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	return s.resolver.ResolveHierarchy(ctx, id)
}

// Activity returns the audit trail of a user, newest first
func (s *UserService) Activity(ctx context.Context, p identity.Principal, id int64, limit int) ([]*crm.Activity, error) {
	if err := s.gate.CheckAccess(ctx, p, id); err != nil {
		return nil, err
	}
	return s.recorder.History(ctx, crm.SubjectUser, id, shared.ClampPageSize(limit))
}

func (s *UserService) find(ctx context.Context, id int64) (*identity.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NotFound("User not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string, excludeID int64) error {
	taken, err := s.userRepo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return shared.Conflict("A user with this email already exists")
	}
	return nil
}

func (s *UserService) ensureManagerExists(ctx context.Context, managerID *int64) error {
	if managerID == nil {
		return nil
	}
	if _, err := s.userRepo.FindByID(ctx, *managerID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.BadRequest("Manager not found")
		}
		return err
	}
	return nil
}
