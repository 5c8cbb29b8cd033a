package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/campusops/shibgate/internal/data/pgxutil"
	"github.com/campusops/shibgate/internal/domain/model"
	apperrors "github.com/campusops/shibgate/internal/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRepo provides the account-store operations the SSO core needs:
// lookup by username, create, and update. It owns no other account CRUD.
type AccountRepo struct {
	DB *sql.DB
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{DB: db}
}

const accountColumns = `id, username, email, display_name, first_name, last_name, created_at, updated_at`

func (r *AccountRepo) mapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("account not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return apperrors.Conflict("username already exists")
	}
	return err
}

// FindByUsername returns the account with the exact username. The lookup is
// case-sensitive; case folding policy belongs to the IdP, not this store.
func (r *AccountRepo) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	if username == "" {
		return nil, apperrors.Validation("username is required")
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`

	var acct model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, query, username)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		acct, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return qErr
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFoundf("account %q not found", username)
	}
	if err != nil {
		return nil, fmt.Errorf("find account by username: %w", err)
	}

	return &acct, nil
}

// Create inserts a new account.
func (r *AccountRepo) Create(ctx context.Context, fields model.AccountFields) (*model.Account, error) {
	if fields.Username == "" {
		return nil, apperrors.Validation("username is required")
	}
	if fields.PasswordPlaceholder == "" {
		return nil, apperrors.Validation("credential placeholder is required")
	}

	query := `
		INSERT INTO accounts (username, email, display_name, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + accountColumns

	var acct model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, query,
			fields.Username, fields.Email, fields.DisplayName,
			fields.FirstName, fields.LastName, fields.PasswordPlaceholder)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		acct, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return qErr
	})
	if err != nil {
		return nil, r.mapWriteErr(err)
	}

	return &acct, nil
}

// Update rewrites the identity fields and credential placeholder of an
// existing account. Every successful SSO login lands here so the local record
// tracks the IdP.
func (r *AccountRepo) Update(ctx context.Context, id uuid.UUID, fields model.AccountFields) (*model.Account, error) {
	if id == uuid.Nil {
		return nil, apperrors.Validation("account id is required")
	}

	query := `
		UPDATE accounts
		SET username = $2, email = $3, display_name = $4, first_name = $5,
		    last_name = $6, password_hash = $7, updated_at = now()
		WHERE id = $1
		RETURNING ` + accountColumns

	var acct model.Account
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, qErr := conn.Query(ctx, query,
			id, fields.Username, fields.Email, fields.DisplayName,
			fields.FirstName, fields.LastName, fields.PasswordPlaceholder)
		if qErr != nil {
			return qErr
		}
		defer rows.Close()
		acct, qErr = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Account])
		return qErr
	})
	if err != nil {
		return nil, r.mapWriteErr(err)
	}

	return &acct, nil
}
