package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/orgkeeper/internal/models"
	"github.com/wolfeidau/orgkeeper/internal/store"
)

const accountColumns = `account_id, email, display_name, role, active_org_id, created_at, updated_at`

// AccountStore implements store.AccountStore using PostgreSQL.
type AccountStore struct {
	pool *pgxpool.Pool
}

// NewAccountStore creates a new PostgreSQL-backed account store.
func NewAccountStore(pool *pgxpool.Pool) *AccountStore {
	return &AccountStore{
		pool: pool,
	}
}

// Create creates a new account.
func (s *AccountStore) Create(ctx context.Context, account *models.Account) error {
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	if account.UpdatedAt.IsZero() {
		account.UpdatedAt = now
	}
	if account.Role == "" {
		account.Role = models.GlobalRoleUser
	}

	query := `
		INSERT INTO accounts (
			account_id, email, display_name, role, active_org_id, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		account.AccountID,
		account.Email,
		account.DisplayName,
		string(account.Role),
		account.ActiveOrgID,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("account_id", account.AccountID.String()).
		Msg("Created account")

	return nil
}

// Get retrieves an account by ID.
func (s *AccountStore) Get(ctx context.Context, accountID uuid.UUID) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = $1`
	return s.getOne(ctx, query, accountID)
}

// GetByEmail retrieves an account by email, ignoring case.
func (s *AccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE lower(email) = lower($1)`
	return s.getOne(ctx, query, email)
}

func (s *AccountStore) getOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", mapPostgresError(err))
	}
	return account, nil
}

// ListByIDs returns the accounts that exist for the given IDs.
func (s *AccountStore) ListByIDs(ctx context.Context, accountIDs []uuid.UUID) ([]*models.Account, error) {
	if len(accountIDs) == 0 {
		return []*models.Account{}, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE account_id = ANY($1::uuid[])`

	rows, err := s.pool.Query(ctx, query, uuidArray(accountIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", mapPostgresError(err))
	}
	defer rows.Close()

	accounts := []*models.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateRole sets the global role of an account.
func (s *AccountStore) UpdateRole(ctx context.Context, accountID uuid.UUID, role models.GlobalRole) error {
	query := `UPDATE accounts SET role = $2, updated_at = $3 WHERE account_id = $1`

	result, err := s.pool.Exec(ctx, query, accountID, string(role), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update account role: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// SetActiveOrg sets or clears the active organization of an account.
func (s *AccountStore) SetActiveOrg(ctx context.Context, accountID uuid.UUID, orgID *uuid.UUID) error {
	query := `UPDATE accounts SET active_org_id = $2, updated_at = $3 WHERE account_id = $1`

	result, err := s.pool.Exec(ctx, query, accountID, orgID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set active organization: %w", mapPostgresError(err))
	}
	if result.RowsAffected() == 0 {
		return store.ErrAccountNotFound
	}
	return nil
}

// ClearActiveOrg clears the active organization only when it still points at orgID.
func (s *AccountStore) ClearActiveOrg(ctx context.Context, accountID, orgID uuid.UUID) (bool, error) {
	query := `
		UPDATE accounts SET active_org_id = NULL, updated_at = $3
		WHERE account_id = $1 AND active_org_id = $2
	`

	result, err := s.pool.Exec(ctx, query, accountID, orgID, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to clear active organization: %w", mapPostgresError(err))
	}
	return result.RowsAffected() > 0, nil
}

// ClearActiveOrgForOrg clears every active organization reference to orgID.
func (s *AccountStore) ClearActiveOrgForOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	result, err := s.pool.Exec(ctx, `
		UPDATE accounts SET active_org_id = NULL, updated_at = $2
		WHERE active_org_id = $1
	`, orgID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear active organization references: %w", mapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

// Delete deletes an account. Deleting an absent account succeeds.
func (s *AccountStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM accounts WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Int64("rows", result.RowsAffected()).
		Msg("Deleted account")

	return nil
}

func scanAccount(row pgx.Row) (*models.Account, error) {
	var (
		account models.Account
		role    string
	)
	err := row.Scan(
		&account.AccountID,
		&account.Email,
		&account.DisplayName,
		&role,
		&account.ActiveOrgID,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	account.Role = models.GlobalRole(role)
	return &account, nil
}
