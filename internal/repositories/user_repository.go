package repositories

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chatify-service/internal/apperr"
	"chatify-service/internal/models"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// UserRepository abstracts user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, email, passwordHash, displayName, handle string) (models.User, error)
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByHandle(ctx context.Context, handle string) (models.User, error)
	BulkUsers(ctx context.Context, ids []string) ([]models.PublicUser, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// NormalizeHandle lowercases and trims a handle; validation happens in
// CreateUser against the normalized form.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// CreateUser inserts a new user. The handle is normalized and validated; it
// is immutable once stored.
func (r *UserRepo) CreateUser(ctx context.Context, email, passwordHash, displayName, handle string) (models.User, error) {
	handle = NormalizeHandle(handle)
	if !handlePattern.MatchString(handle) {
		return models.User{}, apperr.ErrInvalidHandle
	}
	if strings.TrimSpace(displayName) == "" {
		return models.User{}, apperr.ErrInvalidDisplayName
	}

	var user models.User
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, handle)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, email, password_hash, display_name, handle, created_at`,
		uuid.NewString(), strings.ToLower(strings.TrimSpace(email)), passwordHash, displayName, handle).
		StructScan(&user)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "handle") {
				return models.User{}, apperr.ErrHandleTaken
			}
			return models.User{}, apperr.ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, display_name, handle, created_at FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	return user, err
}

// GetByEmail fetches a user by email for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, display_name, handle, created_at FROM users WHERE email=$1`,
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	return user, err
}

// GetByHandle looks up a user by their normalized handle.
func (r *UserRepo) GetByHandle(ctx context.Context, handle string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user,
		`SELECT id, email, password_hash, display_name, handle, created_at FROM users WHERE handle=$1`,
		NormalizeHandle(handle))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, apperr.ErrUserNotFound
	}
	return user, err
}

// BulkUsers fetches multiple users in one query.
func (r *UserRepo) BulkUsers(ctx context.Context, ids []string) ([]models.PublicUser, error) {
	if len(ids) == 0 {
		return []models.PublicUser{}, nil
	}
	query, args, err := sqlx.In(`SELECT id, display_name, handle FROM users WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	query = r.db.Rebind(query)

	var users []models.PublicUser
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, err
	}
	return users, nil
}
