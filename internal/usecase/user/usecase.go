package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
	"user-crud-service/pkg/security"
)

// Repository defines the interface for user data access operations.
// Implementations return errors from pkg/errors: NotFoundError for a missing
// id and AlreadyExistsError for an email uniqueness violation.
type Repository interface {
	Create(ctx context.Context, u *domain.User) (*domain.User, error)                // Insert and return the stored row
	GetByID(ctx context.Context, id int64) (*domain.User, error)                     // Retrieve user by ID
	Update(ctx context.Context, id int64, patch domain.Patch) (*domain.User, error)  // Apply a partial update atomically
	Delete(ctx context.Context, id int64) error                                      // Delete user by ID
	List(ctx context.Context, filter domain.Filter) ([]domain.User, int64, error)    // Page of users plus total match count
}

// MetricsRecorder receives domain events worth counting.
type MetricsRecorder interface {
	RecordConflict(operation string)
}

type noopMetrics struct{}

func (noopMetrics) RecordConflict(string) {}

// Option configures a Usecase.
type Option func(*Usecase)

// WithMetrics sets the recorder used for domain metrics.
func WithMetrics(m MetricsRecorder) Option {
	return func(uc *Usecase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

// Usecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo     Repository
	log      *zap.Logger
	validate *validator.Validate
	metrics  MetricsRecorder
}

// New creates a new instance of Usecase with the provided repository and logger.
func New(r Repository, log *zap.Logger, opts ...Option) *Usecase {
	uc := &Usecase{repo: r, log: log, validate: validator.New(), metrics: noopMetrics{}}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		case "gt":
			messages = append(messages, fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}

	return apperrors.NewValidationError(validationErrors[0].Field(), strings.Join(messages, ", "))
}

func toDTO(u *domain.User) User {
	return User{ID: u.ID, Name: u.Name, Email: u.Email}
}

// CreateUser validates the request and inserts the user. The unique
// constraint on email decides conflicts, so concurrent creates cannot both win.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserRequest) (*CreateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("creating user", zap.String("email", in.Email))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	created, err := uc.repo.Create(ctx, &domain.User{
		Name:  in.Name,
		Email: in.Email,
	})
	if err != nil {
		if apperrors.IsAlreadyExists(err) {
			uc.metrics.RecordConflict("create")
			log.Warn("email already exists", zap.String("email", in.Email))
			return nil, err
		}
		log.Error("failed to create user", zap.Error(err))
		return nil, err
	}

	return &CreateUserResponse{User: toDTO(created)}, nil
}

// UpdateUser applies the supplied fields only. Missing users yield NotFoundError
// and email collisions AlreadyExistsError with the stored row left unchanged.
func (uc *Usecase) UpdateUser(ctx context.Context, in UpdateUserRequest) (*UpdateUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("updating user",
		zap.Int64("id", in.ID),
		zap.Bool("name_set", in.Name != nil),
		zap.Bool("email_set", in.Email != nil),
	)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	updated, err := uc.repo.Update(ctx, in.ID, domain.Patch{Name: in.Name, Email: in.Email})
	if err != nil {
		switch {
		case apperrors.IsAlreadyExists(err):
			uc.metrics.RecordConflict("update")
			log.Warn("email already exists", zap.Int64("id", in.ID))
		case apperrors.IsNotFound(err):
			log.Warn("user not found", zap.Int64("id", in.ID))
		default:
			log.Error("failed to update user", zap.Int64("id", in.ID), zap.Error(err))
		}
		return nil, err
	}

	return &UpdateUserResponse{User: toDTO(updated)}, nil
}

// DeleteUser deletes a user after validating the user ID.
func (uc *Usecase) DeleteUser(ctx context.Context, in DeleteUserRequest) (*DeleteUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)
	log.Info("deleting user", zap.Int64("id", in.ID))

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("delete user validation failed", zap.Int64("id", in.ID))
		return nil, formatValidationError(err)
	}

	if err := uc.repo.Delete(ctx, in.ID); err != nil {
		if apperrors.IsNotFound(err) {
			log.Warn("user not found", zap.Int64("id", in.ID))
			return nil, err
		}
		log.Error("failed to delete user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &DeleteUserResponse{ID: in.ID}, nil
}

// GetUser retrieves a user by ID after validating the request.
func (uc *Usecase) GetUser(ctx context.Context, in GetUserRequest) (*GetUserResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("get user validation failed", zap.Int64("id", in.ID))
		return nil, formatValidationError(err)
	}

	u, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			log.Debug("user not found", zap.Int64("id", in.ID))
			return nil, err
		}
		log.Error("failed to get user", zap.Int64("id", in.ID), zap.Error(err))
		return nil, err
	}

	return &GetUserResponse{User: toDTO(u)}, nil
}

// ListUsers retrieves a page of users matching the optional filters.
func (uc *Usecase) ListUsers(ctx context.Context, in ListUsersRequest) (*ListUsersResponse, error) {
	log := logger.WithContext(ctx, uc.log)

	if in.Limit == 0 {
		in.Limit = DefaultLimit
	}

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("list users validation failed", zap.Int("limit", in.Limit), zap.Int("offset", in.Offset))
		return nil, formatValidationError(err)
	}

	filter := domain.Filter{Limit: in.Limit, Offset: in.Offset}
	fields := []struct {
		name  string
		value string
		dst   *string
	}{
		{"email", in.Email, &filter.Email},
		{"name_contains", in.NameContains, &filter.NameContains},
		{"name_startswith", in.NameStartsWith, &filter.NameStartsWith},
	}
	for _, f := range fields {
		v, err := security.ValidateFilterValue(f.value)
		if err != nil {
			log.Warn("invalid list filter", zap.String("field", f.name), zap.Error(err))
			return nil, apperrors.NewValidationError(f.name, err.Error())
		}
		*f.dst = v
	}

	log.Debug("listing users",
		zap.String("email", filter.Email),
		zap.String("name_contains", filter.NameContains),
		zap.String("name_startswith", filter.NameStartsWith),
		zap.Int("limit", filter.Limit),
		zap.Int("offset", filter.Offset),
	)

	domainUsers, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		log.Error("failed to list users", zap.Error(err))
		return nil, err
	}

	users := make([]User, len(domainUsers))
	for i := range domainUsers {
		users[i] = toDTO(&domainUsers[i])
	}

	p := domain.NewPagination(total, filter.Limit, filter.Offset)

	return &ListUsersResponse{
		Users: users,
		Pagination: &Pagination{
			Total:   p.Total,
			Limit:   p.Limit,
			Offset:  p.Offset,
			HasNext: p.HasNext,
			HasPrev: p.HasPrev,
		},
	}, nil
}
