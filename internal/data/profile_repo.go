package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/medportal/portalgate/internal/data/pgxutil"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/domain/model"
	apperrors "github.com/medportal/portalgate/internal/errors"
	"github.com/medportal/portalgate/internal/ports"
)

// ProfileRepo stores onboarding roles in the profiles table.
type ProfileRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

var _ ports.ProfileStore = (*ProfileRepo)(nil)

// NewProfileRepo creates a new ProfileRepo with real time provider.
func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: RealTimeProvider{}}
}

// NewProfileRepoWithTimeProvider creates a new ProfileRepo with a custom time provider (useful for tests).
func NewProfileRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *ProfileRepo {
	return &ProfileRepo{DB: db, timeProvider: tp}
}

type profileRow struct {
	UserID    string    `db:"user_id"`
	Role      *string   `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r profileRow) toModel() model.Profile {
	p := model.Profile{UserID: r.UserID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
	if r.Role != nil {
		p.Role = domainauth.ParseRole(*r.Role)
	}
	return p
}

// Get returns the profile for userID or ErrProfileNotFound.
func (r *ProfileRepo) Get(ctx context.Context, userID string) (*model.Profile, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	var out model.Profile
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx,
			`SELECT user_id, role, created_at, updated_at FROM profiles WHERE user_id = $1`, userID)
		if err != nil {
			return err
		}
		row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[profileRow])
		if err != nil {
			return err
		}
		out = row.toModel()
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", apperrors.MapDBError(err))
	}
	return &out, nil
}

// GetRole implements ports.ProfileStore. A missing profile yields RoleNone.
func (r *ProfileRepo) GetRole(ctx context.Context, userID string) (domainauth.Role, error) {
	p, err := r.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return domainauth.RoleNone, nil
	}
	if err != nil {
		return domainauth.RoleNone, err
	}
	return p.Role, nil
}

// SetRole creates or updates the profile with role.
func (r *ProfileRepo) SetRole(ctx context.Context, userID string, role domainauth.Role) error {
	if userID == "" {
		return ErrUserIDRequired
	}
	if !role.Known() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	now := r.timeProvider.Now().UTC()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO profiles (user_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`, userID, string(role), now)
	if err != nil {
		return fmt.Errorf("set profile role: %w", apperrors.MapDBError(err))
	}
	return nil
}

// ClearRole removes the stored role so the next login goes through role selection again.
func (r *ProfileRepo) ClearRole(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	res, err := r.DB.ExecContext(ctx,
		`UPDATE profiles SET role = NULL, updated_at = $2 WHERE user_id = $1`,
		userID, r.timeProvider.Now().UTC())
	if err != nil {
		return fmt.Errorf("clear profile role: %w", apperrors.MapDBError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("clear profile role: %w", err)
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
