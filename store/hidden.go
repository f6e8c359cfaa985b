package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redveil/redveil/dbopen"
)

// PostRecord is one persisted hidden-post entry.
type PostRecord struct {
	ID       string `json:"id"`
	HiddenAt int64  `json:"timestamp"` // epoch milliseconds
}

// LoadHidden returns all hidden-post records younger than the retention
// window measured back from now, deleting the rest. The sweep runs at
// load time only, never continuously. A record exactly at the cutoff is
// old; one millisecond younger is retained. The caller supplies now so
// the boundary is exact rather than racing the wall clock.
func (s *Store) LoadHidden(ctx context.Context, retention time.Duration, now time.Time) (map[string]PostRecord, error) {
	cutoff := now.Add(-retention).UnixMilli()

	if _, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM hidden_posts WHERE hidden_at <= ?`, cutoff); err != nil {
		return nil, fmt.Errorf("store: sweep hidden: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, hidden_at FROM hidden_posts`)
	if err != nil {
		return nil, fmt.Errorf("store: load hidden: %w", err)
	}
	defer rows.Close()

	out := make(map[string]PostRecord)
	for rows.Next() {
		var r PostRecord
		if err := rows.Scan(&r.ID, &r.HiddenAt); err != nil {
			return nil, fmt.Errorf("store: scan hidden: %w", err)
		}
		out[r.ID] = r
	}
	return out, rows.Err()
}

// PutHidden upserts a hidden-post record (hide, or re-hide refreshing the
// timestamp).
func (s *Store) PutHidden(ctx context.Context, rec PostRecord) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO hidden_posts (id, hidden_at) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET hidden_at = excluded.hidden_at`,
		rec.ID, rec.HiddenAt)
	if err != nil {
		return fmt.Errorf("store: put hidden %s: %w", rec.ID, err)
	}
	s.notify.send(Change{Record: RecordHidden})
	return nil
}

// DeleteHidden removes a hidden-post record (unhide). Deleting an absent id
// is a no-op.
func (s *Store) DeleteHidden(ctx context.Context, id string) error {
	if _, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM hidden_posts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("store: delete hidden %s: %w", id, err)
	}
	s.notify.send(Change{Record: RecordHidden})
	return nil
}

// ClearHidden deletes every hidden-post record. Returns the number removed.
func (s *Store) ClearHidden(ctx context.Context) (int64, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM hidden_posts`)
	if err != nil {
		return 0, fmt.Errorf("store: clear hidden: %w", err)
	}
	n, _ := res.RowsAffected()
	s.notify.send(Change{Record: RecordHidden})
	return n, nil
}

// ClearHiddenOlderThan deletes hidden-post records older than age.
func (s *Store) ClearHiddenOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().Add(-age).UnixMilli()
	res, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM hidden_posts WHERE hidden_at <= ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("store: clear old hidden: %w", err)
	}
	n, _ := res.RowsAffected()
	s.notify.send(Change{Record: RecordHidden})
	return n, nil
}

// Stats summarises the hidden-post record for the management surface.
type Stats struct {
	HiddenCount int64 `json:"hidden_count"`
	// ApproxBytes approximates the serialised size of the hidden map.
	ApproxBytes int64 `json:"approx_bytes"`
}

// HiddenStats returns count and approximate storage size.
func (s *Store) HiddenStats(ctx context.Context) (Stats, error) {
	var st Stats
	// 32 bytes of JSON scaffolding per record around the id and timestamp.
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(id)) + COUNT(*) * 32, 0)
		FROM hidden_posts`).Scan(&st.HiddenCount, &st.ApproxBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("store: stats: %w", err)
	}
	return st, nil
}
