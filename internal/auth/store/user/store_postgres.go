package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"fithub/internal/auth/models"
	"fithub/internal/platform/database"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

const userColumns = `id, public_id, name, email, password_hash, age, gender, height, weight,
	fitness_goal, dietary_preference, medical_issues, created_at, updated_at`

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		uid            uuid.UUID
		age            sql.NullInt32
		height, weight sql.NullFloat64
		user           models.User
	)
	if err := row.Scan(&uid, &user.PublicID, &user.Name, &user.Email, &user.PasswordHash,
		&age, &user.Profile.Gender, &height, &weight,
		&user.Profile.FitnessGoal, &user.Profile.DietaryPreference, &user.Profile.MedicalIssues,
		&user.CreatedAt, &user.UpdatedAt); err != nil {
		return nil, err
	}
	user.ID = id.UserID(uid)
	if age.Valid {
		v := int(age.Int32)
		user.Profile.Age = &v
	}
	if height.Valid {
		v := height.Float64
		user.Profile.Height = &v
	}
	if weight.Valid {
		v := weight.Float64
		user.Profile.Weight = &v
	}
	return &user, nil
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	const query = `INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(user.ID),
		user.PublicID,
		user.Name,
		user.Email,
		user.PasswordHash,
		nullInt(user.Profile.Age),
		user.Profile.Gender,
		nullFloat(user.Profile.Height),
		nullFloat(user.Profile.Weight),
		user.Profile.FitnessGoal,
		user.Profile.DietaryPreference,
		user.Profile.MedicalIssues,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			switch database.ConstraintName(err) {
			case "users_email_key":
				return ErrEmailTaken
			case "users_public_id_key":
				return ErrPublicIDTaken
			default:
				return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrAlreadyUsed)
			}
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Delete removes the user. Sessions go with it through ON DELETE CASCADE.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(userID))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.findOne(ctx, query, email)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) ExistsByPublicID(ctx context.Context, publicID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE public_id = $1)`, publicID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check public id: %w", err)
	}
	return exists, nil
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
