package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redveil/redveil/dbopen"
	"github.com/redveil/redveil/snapshot"
)

// ListBlocked returns the blocked-channel names, sorted.
func (s *Store) ListBlocked(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT name FROM blocked_channels ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list blocked: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan blocked: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// AddBlocked inserts a channel into the blocked set. The name is normalised
// here so every writer stores the same canonical form. Returns false when
// the channel was already blocked.
func (s *Store) AddBlocked(ctx context.Context, name string) (bool, error) {
	norm := snapshot.NormalizeChannel(name)
	if norm == "" {
		return false, fmt.Errorf("store: add blocked: empty channel name")
	}

	res, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO blocked_channels (name, added_at) VALUES (?, ?)
		ON CONFLICT(name) DO NOTHING`,
		norm, time.Now().UnixMilli())
	if err != nil {
		return false, fmt.Errorf("store: add blocked %s: %w", norm, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		s.notify.send(Change{Record: RecordBlocked})
	}
	return n > 0, nil
}

// RemoveBlocked deletes a channel from the blocked set. Returns false when
// the channel was not blocked.
func (s *Store) RemoveBlocked(ctx context.Context, name string) (bool, error) {
	norm := snapshot.NormalizeChannel(name)

	res, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM blocked_channels WHERE name = ?`, norm)
	if err != nil {
		return false, fmt.Errorf("store: remove blocked %s: %w", norm, err)
	}

	n, _ := res.RowsAffected()
	if n > 0 {
		s.notify.send(Change{Record: RecordBlocked})
	}
	return n > 0, nil
}

// LoadBlockedSet returns the blocked channels as a membership set.
func (s *Store) LoadBlockedSet(ctx context.Context) (map[string]bool, error) {
	names, err := s.ListBlocked(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set, nil
}
