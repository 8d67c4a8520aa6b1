package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"picdepot/internal/models"
)

const cacheEntryColumns = "cache_key, original_hash, file_path, size, heat_score, created_at, last_hit, owner_id"

// ErrCacheEntryExists reports an insert that lost the race with another
// request computing the same derived artifact.
var ErrCacheEntryExists = errors.New("cache entry already exists")

// FindCacheEntry returns one cache index entry, or nil when absent.
func (s *Store) FindCacheEntry(ctx context.Context, cacheKey string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cacheEntryColumns+` FROM cache_entries WHERE cache_key = ?`, cacheKey)
	return scanCacheEntry(row)
}

// InsertCacheEntry inserts one cache index entry. A conflicting insert
// returns ErrCacheEntryExists.
func (s *Store) InsertCacheEntry(ctx context.Context, entry *models.CacheEntry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_key, original_hash, file_path, size, heat_score, created_at, last_hit, owner_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		entry.CacheKey,
		entry.OriginalHash,
		entry.FilePath,
		entry.Size,
		entry.HeatScore,
		formatTime(entry.CreatedAt),
		nullTime(entry.LastHit),
		nullOwner(entry.OwnerID),
	)
	if err != nil {
		if isUniqueConstraint(err, "cache_entries.cache_key") {
			return ErrCacheEntryExists
		}
		return err
	}
	return nil
}

// BumpCacheHeat records one cache hit: raises the heat score and stamps
// the hit time in a single atomic update.
func (s *Store) BumpCacheHeat(ctx context.Context, cacheKey string, boost float64, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE cache_entries SET heat_score = heat_score + ?, last_hit = ? WHERE cache_key = ?
	`, boost, formatTime(now), cacheKey)
	return err
}

// DecayHeatScores multiplies every positive heat score by factor and
// returns the number of rows touched. The CHECK constraint keeps scores
// non-negative for any factor in [0, 1].
func (s *Store) DecayHeatScores(ctx context.Context, factor float64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"UPDATE cache_entries SET heat_score = heat_score * ? WHERE heat_score > 0", factor)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteCacheEntry deletes one cache index entry and reports whether a row
// was removed.
func (s *Store) DeleteCacheEntry(ctx context.Context, cacheKey string) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_key = ?", cacheKey)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListCacheEntriesByOriginal returns every derived artifact of one
// original, oldest first. Used when the original is deleted.
func (s *Store) ListCacheEntriesByOriginal(ctx context.Context, originalHash string) ([]models.CacheEntry, error) {
	return s.listCacheEntries(ctx,
		`SELECT `+cacheEntryColumns+` FROM cache_entries WHERE original_hash = ? ORDER BY created_at ASC`,
		originalHash)
}

// ListEvictionCandidates returns cache entries coldest first: lowest heat
// score, then least recently hit (never-hit entries first), then oldest.
func (s *Store) ListEvictionCandidates(ctx context.Context) ([]models.CacheEntry, error) {
	return s.listCacheEntries(ctx,
		`SELECT `+cacheEntryColumns+` FROM cache_entries
		 ORDER BY heat_score ASC, last_hit IS NOT NULL, last_hit ASC, created_at ASC`)
}

// ListCacheEntriesOlderThan returns entries created strictly before cutoff,
// oldest first.
func (s *Store) ListCacheEntriesOlderThan(ctx context.Context, cutoff time.Time) ([]models.CacheEntry, error) {
	return s.listCacheEntries(ctx,
		`SELECT `+cacheEntryColumns+` FROM cache_entries WHERE created_at < ? ORDER BY created_at ASC`,
		formatTime(cutoff))
}

// CacheStats aggregates the cache index footprint.
func (s *Store) CacheStats(ctx context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0) FROM cache_entries",
	).Scan(&stats.EntryCount, &stats.TotalBytes)
	return stats, err
}

func (s *Store) listCacheEntries(ctx context.Context, stmt string, args ...any) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.CacheEntry{}
	for rows.Next() {
		entry, err := scanCacheEntry(rows)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, rows.Err()
}

func scanCacheEntry(scanner interface {
	Scan(dest ...any) error
}) (*models.CacheEntry, error) {
	entry := models.CacheEntry{}

	var owner sql.NullInt64
	var createdAt string
	var lastHit sql.NullString

	err := scanner.Scan(
		&entry.CacheKey,
		&entry.OriginalHash,
		&entry.FilePath,
		&entry.Size,
		&entry.HeatScore,
		&createdAt,
		&lastHit,
		&owner,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	entry.OwnerID = owner.Int64

	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = parsedCreated

	if lastHit.Valid {
		parsed, err := parseTime(lastHit.String)
		if err != nil {
			return nil, err
		}
		entry.LastHit = &parsed
	}

	return &entry, nil
}
