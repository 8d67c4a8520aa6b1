package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"picdepot/internal/models"
)

const objectColumns = "hash, size, mime, owner_id, created_at, last_accessed, access_count, original_filename, extension"

// ErrObjectExists reports an insert that lost the dedup race: a record with
// the same hash is already in the catalog. The caller resolves it by
// reading the winning record; it is not surfaced to clients.
var ErrObjectExists = errors.New("object already exists")

// FindObjectByHash returns one catalog record, or nil when absent.
func (s *Store) FindObjectByHash(ctx context.Context, hash string) (*models.ObjectRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+objectColumns+` FROM objects WHERE hash = ?`, hash)
	return scanObject(row)
}

// InsertObject inserts one catalog record. The primary key on hash is the
// serialization point for concurrent uploads of identical content: a
// conflicting insert returns ErrObjectExists.
func (s *Store) InsertObject(ctx context.Context, record *models.ObjectRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO objects (hash, size, mime, owner_id, created_at, last_accessed, access_count, original_filename, extension)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.Hash,
		record.Size,
		record.MIME,
		nullOwner(record.OwnerID),
		formatTime(record.CreatedAt),
		nullTime(record.LastAccessed),
		record.AccessCount,
		nullIfEmpty(strings.TrimSpace(record.OriginalFilename)),
		record.Extension,
	)
	if err != nil {
		if isUniqueConstraint(err, "objects.hash") {
			return ErrObjectExists
		}
		return err
	}
	return nil
}

// DeleteObjectByHash deletes one catalog record and reports whether a row
// was removed. Cache entries referencing the hash are removed by the
// foreign key cascade; their files and quota are the caller's concern.
func (s *Store) DeleteObjectByHash(ctx context.Context, hash string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM objects WHERE hash = ?", hash)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// TouchObjectAccess records one read: bumps the access counter and the
// last-accessed timestamp in a single atomic update.
func (s *Store) TouchObjectAccess(ctx context.Context, hash string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE objects SET last_accessed = ?, access_count = access_count + 1 WHERE hash = ?
	`, formatTime(now), hash)
	return err
}

// QueryObjects returns one catalog page plus the total match count.
func (s *Store) QueryObjects(ctx context.Context, query models.ObjectQuery) ([]models.ObjectRecord, int64, error) {
	where, args := objectFilter(query.OwnerID)

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, err := models.ParseObjectOrder(string(query.Order))
	if err != nil {
		return nil, 0, err
	}
	direction := "ASC"
	if query.Descending {
		direction = "DESC"
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	stmt := fmt.Sprintf("SELECT %s FROM objects%s ORDER BY %s %s, hash ASC LIMIT ? OFFSET ?", objectColumns, where, order, direction)
	rows, err := s.db.QueryContext(ctx, stmt, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := []models.ObjectRecord{}
	for rows.Next() {
		record, err := scanObject(rows)
		if err != nil {
			return nil, 0, err
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// ObjectStats aggregates count and bytes, optionally scoped to one owner.
func (s *Store) ObjectStats(ctx context.Context, owner *int64) (models.ObjectStats, error) {
	where, args := objectFilter(owner)
	var stats models.ObjectStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM objects"+where, args...,
	).Scan(&stats.Count, &stats.TotalBytes)
	return stats, err
}

// ListObjectsByOwner returns every catalog record owned by one tenant,
// oldest first. Used by owner-cascade deletion.
func (s *Store) ListObjectsByOwner(ctx context.Context, owner int64) ([]models.ObjectRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+objectColumns+` FROM objects WHERE owner_id = ? ORDER BY created_at ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.ObjectRecord{}
	for rows.Next() {
		record, err := scanObject(rows)
		if err != nil {
			return nil, err
		}
		if record != nil {
			records = append(records, *record)
		}
	}
	return records, rows.Err()
}

func objectFilter(owner *int64) (string, []any) {
	if owner == nil {
		return "", nil
	}
	if *owner == models.AnonymousOwnerID {
		return " WHERE owner_id IS NULL", nil
	}
	return " WHERE owner_id = ?", []any{*owner}
}

func nullOwner(owner int64) any {
	if owner == models.AnonymousOwnerID {
		return nil
	}
	return owner
}

func scanObject(scanner interface {
	Scan(dest ...any) error
}) (*models.ObjectRecord, error) {
	record := models.ObjectRecord{}

	var owner sql.NullInt64
	var createdAt string
	var lastAccessed, originalFilename sql.NullString

	err := scanner.Scan(
		&record.Hash,
		&record.Size,
		&record.MIME,
		&owner,
		&createdAt,
		&lastAccessed,
		&record.AccessCount,
		&originalFilename,
		&record.Extension,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	record.OwnerID = owner.Int64
	record.OriginalFilename = originalFilename.String

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	record.CreatedAt = parsedCreated

	if lastAccessed.Valid {
		parsed, err := parseTime(lastAccessed.String)
		if err != nil {
			return nil, err
		}
		record.LastAccessed = &parsed
	}

	return &record, nil
}
