package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"picdepot/internal/models"
)

var (
	// ErrQuotaExceeded reports a reservation that would push a tenant past
	// its configured limit. Usage is left unchanged.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrQuotaAccountNotFound reports a lookup for a tenant with no ledger row.
	ErrQuotaAccountNotFound = errors.New("quota account not found")

	// ErrQuotaInUse reports an attempt to delete a ledger row that still
	// tracks live bytes.
	ErrQuotaInUse = errors.New("quota account has bytes in use")
)

// ReserveQuota atomically charges n bytes against a tenant's ledger,
// creating the account row on first use. It fails with ErrQuotaExceeded
// when the tenant has a limit and the reservation would cross it; on
// failure usage is unchanged. The anonymous tenant is exempt.
func (s *Store) ReserveQuota(ctx context.Context, tenantID, n int64) error {
	if n <= 0 {
		return nil
	}
	return s.adjustQuotaUsage(ctx, tenantID, n)
}

// ReleaseQuota atomically returns n bytes to a tenant's ledger. Releasing
// more than is currently used clamps to zero rather than failing: the
// ledger may undercount after a partial failure, and release must still
// converge.
func (s *Store) ReleaseQuota(ctx context.Context, tenantID, n int64) error {
	if n <= 0 {
		return nil
	}
	return s.adjustQuotaUsage(ctx, tenantID, -n)
}

// adjustQuotaUsage applies a signed delta to used_bytes inside one
// transaction. The single-connection pool plus the transaction makes the
// read-check-write sequence atomic with respect to other reservations.
func (s *Store) adjustQuotaUsage(ctx context.Context, tenantID, delta int64) error {
	if tenantID == models.AnonymousOwnerID {
		return nil
	}
	if tenantID < 0 {
		return fmt.Errorf("invalid tenant id: %d", tenantID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO quota_accounts (tenant_id, quota_limit, used_bytes) VALUES (?, NULL, 0) ON CONFLICT (tenant_id) DO NOTHING",
		tenantID); err != nil {
		return err
	}

	var used int64
	var limit sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		"SELECT used_bytes, quota_limit FROM quota_accounts WHERE tenant_id = ?",
		tenantID).Scan(&used, &limit); err != nil {
		return err
	}

	next := used + delta
	if delta > 0 && limit.Valid && next > limit.Int64 {
		return ErrQuotaExceeded
	}
	if next < 0 {
		next = 0
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE quota_accounts SET used_bytes = ? WHERE tenant_id = ?",
		next, tenantID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetQuotaAccount returns one ledger row, or ErrQuotaAccountNotFound.
func (s *Store) GetQuotaAccount(ctx context.Context, tenantID int64) (*models.QuotaAccount, error) {
	account := models.QuotaAccount{TenantID: tenantID}
	var limit sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT quota_limit, used_bytes FROM quota_accounts WHERE tenant_id = ?",
		tenantID).Scan(&limit, &account.UsedBytes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrQuotaAccountNotFound
		}
		return nil, err
	}
	if limit.Valid {
		account.QuotaLimit = &limit.Int64
	}
	return &account, nil
}

// SetQuotaLimit upserts a tenant's limit without touching usage. A nil
// limit means unlimited.
func (s *Store) SetQuotaLimit(ctx context.Context, tenantID int64, limit *int64) error {
	if tenantID <= 0 {
		return fmt.Errorf("tenant id must be positive")
	}
	if limit != nil && *limit < 0 {
		return fmt.Errorf("quota limit must be non-negative")
	}
	var value any
	if limit != nil {
		value = *limit
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quota_accounts (tenant_id, quota_limit, used_bytes) VALUES (?, ?, 0)
		ON CONFLICT (tenant_id) DO UPDATE SET quota_limit = excluded.quota_limit
	`, tenantID, value)
	return err
}

// DeleteQuotaAccount removes a tenant's ledger row. It refuses with
// ErrQuotaInUse while the tenant still has bytes reserved, and reports
// whether a row was removed.
func (s *Store) DeleteQuotaAccount(ctx context.Context, tenantID int64) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var used int64
	err = tx.QueryRowContext(ctx,
		"SELECT used_bytes FROM quota_accounts WHERE tenant_id = ?", tenantID).Scan(&used)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if used > 0 {
		return false, ErrQuotaInUse
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM quota_accounts WHERE tenant_id = ?", tenantID); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// ListQuotaAccounts returns every ledger row ordered by tenant id.
func (s *Store) ListQuotaAccounts(ctx context.Context) ([]models.QuotaAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT tenant_id, quota_limit, used_bytes FROM quota_accounts ORDER BY tenant_id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.QuotaAccount{}
	for rows.Next() {
		var account models.QuotaAccount
		var limit sql.NullInt64
		if err := rows.Scan(&account.TenantID, &limit, &account.UsedBytes); err != nil {
			return nil, err
		}
		if limit.Valid {
			account.QuotaLimit = &limit.Int64
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}
