package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

type matchRepository struct {
	db *sql.DB
}

func (r *matchRepository) Insert(ctx context.Context, match *core.Match) (int64, error) {
	if err := r.validatePair(ctx, match.JobID, match.EngineerID); err != nil {
		return 0, err
	}
	if match.Status == "" {
		match.Status = core.StatusNew
	}
	createdAt := match.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (job_id, engineer_id, score, grade, created_at, is_hidden, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		match.JobID, match.EngineerID, match.Score, string(match.Grade),
		createdAt.Format(time.RFC3339Nano), boolToInt(match.IsHidden), string(match.Status),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, fmt.Errorf("%w: match for pair (%d, %d) already exists",
				core.ErrInvalidArgument, match.JobID, match.EngineerID)
		}
		return 0, fmt.Errorf("%w: inserting match: %v", core.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading match id: %v", core.ErrPersistence, err)
	}

	match.ID = id
	match.CreatedAt = createdAt
	return id, nil
}

func (r *matchRepository) ExistsLive(ctx context.Context, jobID, engineerID int64) (bool, error) {
	var count int
	row := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM matches WHERE job_id = ? AND engineer_id = ?", jobID, engineerID)
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("%w: checking pair (%d, %d): %v", core.ErrPersistence, jobID, engineerID, err)
	}
	return count > 0, nil
}

func (r *matchRepository) ClearForJob(ctx context.Context, jobID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM matches WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("%w: clearing matches for job %d: %v", core.ErrPersistence, jobID, err)
	}
	return nil
}

func (r *matchRepository) ClearForEngineer(ctx context.Context, engineerID int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM matches WHERE engineer_id = ?", engineerID); err != nil {
		return fmt.Errorf("%w: clearing matches for engineer %d: %v", core.ErrPersistence, engineerID, err)
	}
	return nil
}

func (r *matchRepository) SetHidden(ctx context.Context, matchID int64, hidden bool) error {
	return r.exec(ctx, matchID, "UPDATE matches SET is_hidden = ? WHERE id = ?", boolToInt(hidden), matchID)
}

func (r *matchRepository) SetStatus(ctx context.Context, matchID int64, status core.Status) error {
	if _, err := core.ParseStatus(string(status)); err != nil {
		return err
	}
	return r.exec(ctx, matchID, "UPDATE matches SET status = ? WHERE id = ?", string(status), matchID)
}

func (r *matchRepository) ListForJob(ctx context.Context, jobID int64) (*core.Matches, error) {
	return r.list(ctx, "job_id", jobID)
}

func (r *matchRepository) ListForEngineer(ctx context.Context, engineerID int64) (*core.Matches, error) {
	return r.list(ctx, "engineer_id", engineerID)
}

func (r *matchRepository) list(ctx context.Context, column string, id int64) (*core.Matches, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, job_id, engineer_id, score, grade, created_at, is_hidden, status
		FROM matches WHERE %s = ? ORDER BY score DESC, id`, column), id)
	if err != nil {
		return nil, fmt.Errorf("%w: listing matches: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	matches := &core.Matches{}
	for rows.Next() {
		var (
			m         core.Match
			grade     string
			status    string
			createdAt string
			hidden    int
		)
		if err := rows.Scan(&m.ID, &m.JobID, &m.EngineerID, &m.Score, &grade, &createdAt, &hidden, &status); err != nil {
			return nil, fmt.Errorf("%w: scanning match: %v", core.ErrPersistence, err)
		}
		m.Grade = core.Grade(grade)
		m.Status = core.Status(status)
		m.IsHidden = hidden != 0
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("%w: parsing created_at of match %d: %v", core.ErrPersistence, m.ID, err)
		}
		matches.Items = append(matches.Items, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing matches: %v", core.ErrPersistence, err)
	}
	return matches, nil
}

// validatePair confirms both referenced documents exist and carry the
// expected kinds before a match row is written.
func (r *matchRepository) validatePair(ctx context.Context, jobID, engineerID int64) error {
	for _, check := range []struct {
		id   int64
		kind core.Kind
	}{
		{jobID, core.KindJob},
		{engineerID, core.KindEngineer},
	} {
		var kind string
		row := r.db.QueryRowContext(ctx, "SELECT kind FROM documents WHERE id = ?", check.id)
		err := row.Scan(&kind)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: document %d not found", core.ErrInvalidArgument, check.id)
		}
		if err != nil {
			return fmt.Errorf("%w: reading document %d: %v", core.ErrPersistence, check.id, err)
		}
		if core.Kind(kind) != check.kind {
			return fmt.Errorf("%w: document %d is a %s, expected %s",
				core.ErrInvalidArgument, check.id, kind, check.kind)
		}
	}
	return nil
}

func (r *matchRepository) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating match %d: %v", core.ErrPersistence, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating match %d: %v", core.ErrPersistence, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: match %d not found", core.ErrInvalidArgument, id)
	}
	return nil
}
