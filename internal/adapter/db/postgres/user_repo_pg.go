package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
	"user-crud-service/pkg/security"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// UserRepoPG implements the Repository interface using GORM.
// It targets PostgreSQL and also runs unchanged on SQLite.
type UserRepoPG struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"not null"`
	Email string `gorm:"not null;uniqueIndex:idx_users_email"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (m *UserSchema) toDomain() *user.User {
	return &user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{})
}

// isUniqueViolation recognises duplicate key errors from every supported driver.
// TranslateError covers drivers that implement it; the pgconn and message
// checks cover handles opened without it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func errEmailTaken() error {
	return apperrors.NewAlreadyExistsError("user", "email already exists")
}

func errUserNotFound() error {
	return apperrors.NewNotFoundError("user", "user not found")
}

// Create inserts a new user and returns it with the generated ID.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, apperrors.NewValidationError("user", "user cannot be nil")
	}
	log := logger.WithContext(ctx, r.log)

	model := UserSchema{
		Name:  u.Name,
		Email: u.Email,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, errEmailTaken()
		}
		log.Error("failed to create user in db", zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	log.Info("user created in db", zap.Int64("id", model.ID))
	return model.toDomain(), nil
}

// Update applies patch to the user inside a transaction. Any failure rolls
// the transaction back, so a rejected email leaves the stored row unchanged.
func (r *UserRepoPG) Update(ctx context.Context, id int64, patch user.Patch) (*user.User, error) {
	log := logger.WithContext(ctx, r.log)
	var model UserSchema

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&model, id).Error; err != nil {
			return err
		}
		if patch.IsEmpty() {
			return nil
		}

		changes := make(map[string]any, 2)
		if patch.Name != nil {
			changes["name"] = *patch.Name
		}
		if patch.Email != nil {
			changes["email"] = *patch.Email
		}

		if err := tx.Model(&UserSchema{}).Where("id = ?", id).Updates(changes).Error; err != nil {
			return err
		}

		updated := patch.Apply(*model.toDomain())
		model.Name, model.Email = updated.Name, updated.Email
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, errUserNotFound()
		case isUniqueViolation(err):
			return nil, errEmailTaken()
		}
		log.Error("failed to update user in db", zap.Error(err), zap.Int64("id", id))
		return nil, apperrors.NewInternalError("failed to update user", err)
	}

	log.Info("user updated in db", zap.Int64("id", id))
	return model.toDomain(), nil
}

// Delete removes a user from the database by ID.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) error {
	log := logger.WithContext(ctx, r.log)

	res := r.db.WithContext(ctx).Delete(&UserSchema{}, id)
	if res.Error != nil {
		log.Error("failed to delete user in db", zap.Error(res.Error), zap.Int64("id", id))
		return apperrors.NewInternalError("failed to delete user", res.Error)
	}
	if res.RowsAffected == 0 {
		return errUserNotFound()
	}

	log.Info("user deleted in db", zap.Int64("id", id))
	return nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound()
		}
		logger.WithContext(ctx, r.log).Error("failed to get user from db", zap.Error(err), zap.Int64("id", id))
		return nil, apperrors.NewInternalError("failed to get user", err)
	}

	return model.toDomain(), nil
}

// filterScope applies the non-empty filter fields, ANDed together.
// Name matching is case-insensitive and treats LIKE wildcards in the input literally.
// PostgreSQL folds case for all of Unicode; SQLite's LOWER only folds ASCII, so
// on SQLite non-ASCII letters match only when their case already agrees.
func filterScope(f user.Filter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Email != "" {
			db = db.Where("email = ?", f.Email)
		}
		if f.NameContains != "" {
			db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+security.EscapeLike(strings.ToLower(f.NameContains))+"%")
		}
		if f.NameStartsWith != "" {
			db = db.Where(`LOWER(name) LIKE ? ESCAPE '\'`, security.EscapeLike(strings.ToLower(f.NameStartsWith))+"%")
		}
		return db
	}
}

// List returns one page of users ordered by id and the number of users
// matching the filter before paging.
func (r *UserRepoPG) List(ctx context.Context, f user.Filter) ([]user.User, int64, error) {
	log := logger.WithContext(ctx, r.log)

	var total int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Scopes(filterScope(f)).Count(&total).Error; err != nil {
		log.Error("failed to count users in db", zap.Error(err))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	var models []UserSchema
	err := r.db.WithContext(ctx).
		Scopes(filterScope(f)).
		Order("id ASC").
		Offset(f.Offset).
		Limit(f.Limit).
		Find(&models).Error
	if err != nil {
		log.Error("failed to list users from db", zap.Error(err))
		return nil, 0, apperrors.NewInternalError("failed to list users", err)
	}

	users := make([]user.User, len(models))
	for i := range models {
		users[i] = *models[i].toDomain()
	}

	return users, total, nil
}
