package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const usernameMaxLen = 150

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// UserService manages the user directory for self-service and admin views.
type UserService struct {
	users      repository.UserRepository
	authz      *auth.Authorizer
	bcryptCost int
}

// UserDependencies bundles requirements for user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	Authorizer *auth.Authorizer
	BcryptCost int
}

// RegisterInput is the public sign-up payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfileEditInput carries self-service edits; nil fields are left unchanged.
type ProfileEditInput struct {
	Username *string
	Email    *string
	Password *string
}

// AdminUserInput is the admin create payload.
type AdminUserInput struct {
	Username string
	Email    string
	Password string
	Role     domain.Role
	IsActive *bool
}

// AdminUserEditInput carries admin edits; nil fields are left unchanged.
type AdminUserEditInput struct {
	Username *string
	Email    *string
	Password *string
	Role     *domain.Role
	IsActive *bool
}

// UserQuery filters the admin user list.
type UserQuery struct {
	Role     *domain.Role
	IsActive *bool
	Search   *string
	Ordering string
	Limit    int
	Offset   int
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		authz:      deps.Authorizer,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates an active USER account.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.create(ctx, input.Username, input.Email, input.Password, domain.RoleUser, true)
}

// CreateAdmin bootstraps an ADMIN account without an acting user.
func (s *UserService) CreateAdmin(ctx context.Context, input RegisterInput) (*domain.User, error) {
	return s.create(ctx, input.Username, input.Email, input.Password, domain.RoleAdmin, true)
}

// Get returns a profile; callers may read their own, admins any.
func (s *UserService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.load(ctx, actor, auth.ResourceProfile, auth.ActionRetrieve, id)
}

// Update applies self-service edits.
func (s *UserService) Update(ctx context.Context, actor *domain.User, id string, input ProfileEditInput) (*domain.User, error) {
	user, err := s.load(ctx, actor, auth.ResourceProfile, auth.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, user, input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Delete removes a profile and, through cascades, everything it created.
func (s *UserService) Delete(ctx context.Context, actor *domain.User, id string) error {
	user, err := s.load(ctx, actor, auth.ResourceProfile, auth.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return apperrors.NotFoundOr(err, "user", id)
	}
	return nil
}

// AdminList lists users for administrators.
func (s *UserService) AdminList(ctx context.Context, actor *domain.User, q UserQuery) ([]domain.User, int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminUser, auth.ActionList, nil); err != nil {
		return nil, 0, err
	}
	users, total, err := s.users.List(ctx, repository.UserFilter{
		Role:       q.Role,
		IsActive:   q.IsActive,
		SearchTerm: q.Search,
		Ordering:   q.Ordering,
		Limit:      q.Limit,
		Offset:     q.Offset,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return users, total, nil
}

// AdminCreate creates a user with an explicit role.
func (s *UserService) AdminCreate(ctx context.Context, actor *domain.User, input AdminUserInput) (*domain.User, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminUser, auth.ActionCreate, nil); err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewFieldError("role", "role must be one of [USER SUPPORT ADMIN]")
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	return s.create(ctx, input.Username, input.Email, input.Password, input.Role, active)
}

// AdminGet returns any user.
func (s *UserService) AdminGet(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.load(ctx, actor, auth.ResourceAdminUser, auth.ActionRetrieve, id)
}

// AdminUpdate edits any user, including role and active flag.
func (s *UserService) AdminUpdate(ctx context.Context, actor *domain.User, id string, input AdminUserEditInput) (*domain.User, error) {
	user, err := s.load(ctx, actor, auth.ResourceAdminUser, auth.ActionUpdate, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, user, input.Username, input.Email, input.Password); err != nil {
		return nil, err
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, apperrors.NewFieldError("role", "role must be one of [USER SUPPORT ADMIN]")
		}
		user.Role = *input.Role
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// AdminDelete removes any user.
func (s *UserService) AdminDelete(ctx context.Context, actor *domain.User, id string) error {
	user, err := s.load(ctx, actor, auth.ResourceAdminUser, auth.ActionDelete, id)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return apperrors.NotFoundOr(err, "user", id)
	}
	return nil
}

// ActiveCount splits users by active flag.
func (s *UserService) ActiveCount(ctx context.Context, actor *domain.User) (domain.UserActivityCounts, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminUser, auth.ActionStats, nil); err != nil {
		return domain.UserActivityCounts{}, err
	}
	counts, err := s.users.CountByActive(ctx)
	if err != nil {
		return domain.UserActivityCounts{}, apperrors.MapError(err)
	}
	return counts, nil
}

// RegisteredCount counts users who joined within [start, end].
func (s *UserService) RegisteredCount(ctx context.Context, actor *domain.User, start, end time.Time) (int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminUser, auth.ActionStats, nil); err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, apperrors.NewFieldError("end_date", "end_date must not be before start_date")
	}
	total, err := s.users.CountJoinedBetween(ctx, start, end)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return total, nil
}

// RolesCount counts users per role; every role is present in the result.
func (s *UserService) RolesCount(ctx context.Context, actor *domain.User) (map[domain.Role]int, error) {
	if err := s.authz.Authorize(actor, auth.ResourceAdminUser, auth.ActionStats, nil); err != nil {
		return nil, err
	}
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}

func (s *UserService) load(ctx context.Context, actor *domain.User, res auth.Resource, act auth.Action, id string) (*domain.User, error) {
	if err := s.authz.Authorize(actor, res, act, nil); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.NotFoundOr(err, "user", id)
	}
	if err := s.authz.Authorize(actor, res, act, auth.UserTarget(user.ID)); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) create(ctx context.Context, username, email, password string, role domain.Role, active bool) (*domain.User, error) {
	username, err := normalizeUsername(username)
	if err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	if err := s.checkUnique(ctx, "", &username, &email); err != nil {
		return nil, err
	}
	hash, err := s.hash(password, username)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

func (s *UserService) apply(ctx context.Context, user *domain.User, username, email, password *string) error {
	if username != nil {
		normalized, err := normalizeUsername(*username)
		if err != nil {
			return err
		}
		username = &normalized
	}
	if email != nil {
		trimmed := strings.TrimSpace(*email)
		email = &trimmed
	}
	if err := s.checkUnique(ctx, user.ID, username, email); err != nil {
		return err
	}
	if username != nil {
		user.Username = *username
	}
	if email != nil {
		user.Email = *email
	}
	if password != nil && *password != "" {
		hash, err := s.hash(*password, user.Username)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	return nil
}

func (s *UserService) checkUnique(ctx context.Context, selfID string, username, email *string) error {
	if username != nil {
		existing, err := s.users.GetByUsername(ctx, *username)
		if err == nil && existing.ID != selfID {
			return repository.DuplicateError("user", "username")
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
	}
	if email != nil {
		existing, err := s.users.GetByEmail(ctx, *email)
		if err == nil && existing.ID != selfID {
			return repository.DuplicateError("user", "email")
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return apperrors.MapError(err)
		}
	}
	return nil
}

func (s *UserService) hash(password, username string) (string, error) {
	if problems := auth.PasswordProblems(password, username); len(problems) > 0 {
		return "", apperrors.NewValidationError("password is too weak", map[string]any{"password": problems})
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", apperrors.NewFieldError("username", "username is required")
	}
	if len([]rune(username)) > usernameMaxLen {
		return "", apperrors.NewFieldError("username", "username must be at most 150 characters long")
	}
	if !usernamePattern.MatchString(username) {
		return "", apperrors.NewFieldError("username", "username may contain only letters, numbers, and @/./+/-/_ characters")
	}
	return username, nil
}
