package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/triv3/musicvault/internal/domain"
)

// CreateCandidate persists one ranked extractor result for a Track.
func (db *DB) CreateCandidate(ctx context.Context, c *domain.SearchCandidate) (*domain.SearchCandidate, error) {
	row := db.QueryRowxContext(ctx, `
		INSERT INTO search_candidates (
			track_id, provider, external_id, url, title, channel, duration_sec, thumbnail_url, score, chosen, score_breakdown
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id, track_id, provider, external_id, url, title, channel, duration_sec,
			thumbnail_url, score, chosen, score_breakdown, created_at`,
		c.TrackID, c.Provider, c.ExternalID, c.URL, c.Title, c.Channel, c.DurationSec, c.ThumbnailURL,
		c.Score, c.Chosen, c.ScoreBreakdown,
	)
	var created domain.SearchCandidate
	if err := row.StructScan(&created); err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	return &created, nil
}

// GetCandidate fetches a SearchCandidate by id.
func (db *DB) GetCandidate(ctx context.Context, id int) (*domain.SearchCandidate, error) {
	var c domain.SearchCandidate
	err := db.GetContext(ctx, &c, "SELECT * FROM search_candidates WHERE id = ?", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCandidatesByTrack returns every candidate for a Track, best score first.
func (db *DB) ListCandidatesByTrack(ctx context.Context, trackID int) ([]domain.SearchCandidate, error) {
	var candidates []domain.SearchCandidate
	err := db.SelectContext(ctx, &candidates,
		"SELECT * FROM search_candidates WHERE track_id = ? ORDER BY score DESC, id ASC", trackID)
	return candidates, err
}

// GetChosenCandidate returns the candidate marked chosen for a Track, if any.
func (db *DB) GetChosenCandidate(ctx context.Context, trackID int) (*domain.SearchCandidate, error) {
	var c domain.SearchCandidate
	err := db.GetContext(ctx, &c,
		"SELECT * FROM search_candidates WHERE track_id = ? AND chosen = 1", trackID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ChooseCandidate is a single atomic operation: set chosen=true on
// candidateID, chosen=false on every sibling with the same track_id.
// Enforces "at most one chosen candidate per track" (invariant 2/3 of §8).
func (db *DB) ChooseCandidate(ctx context.Context, trackID, candidateID int) error {
	return db.RunInTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"UPDATE search_candidates SET chosen = 0 WHERE track_id = ?", trackID,
		); err != nil {
			return fmt.Errorf("unset siblings: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE search_candidates SET chosen = 1 WHERE id = ? AND track_id = ?",
			candidateID, trackID,
		)
		if err != nil {
			return fmt.Errorf("set chosen: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("candidate %d does not belong to track %d", candidateID, trackID)
		}
		return nil
	})
}
