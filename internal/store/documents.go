package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/internal/core"
)

type documentStore struct {
	db *sql.DB
}

func (s *documentStore) Create(ctx context.Context, doc *core.Document) (int64, error) {
	if doc.Kind != core.KindJob && doc.Kind != core.KindEngineer {
		return 0, fmt.Errorf("%w: document kind %q", core.ErrInvalidArgument, doc.Kind)
	}
	if doc.Text == "" {
		return 0, fmt.Errorf("%w: document text is empty", core.ErrInvalidArgument)
	}

	keywords, err := encodeKeywords(doc.Keywords)
	if err != nil {
		return 0, err
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (kind, text, keywords, created_at, is_hidden, assigned_user_id, pending_index)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(doc.Kind), doc.Text, keywords, createdAt.Format(time.RFC3339Nano),
		boolToInt(doc.IsHidden), doc.AssignedUserID, boolToInt(doc.PendingIndex),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting document: %v", core.ErrPersistence, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading document id: %v", core.ErrPersistence, err)
	}

	doc.ID = id
	doc.CreatedAt = createdAt
	return id, nil
}

func (s *documentStore) Get(ctx context.Context, id int64) (*core.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, text, keywords, created_at, is_hidden, assigned_user_id, pending_index
		FROM documents WHERE id = ?`, id)

	var (
		doc       core.Document
		kind      string
		keywords  string
		createdAt string
		hidden    int
		pending   int
	)
	err := row.Scan(&doc.ID, &kind, &doc.Text, &keywords, &createdAt, &hidden, &doc.AssignedUserID, &pending)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: document %d not found", core.ErrInvalidArgument, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading document %d: %v", core.ErrPersistence, id, err)
	}

	doc.Kind = core.Kind(kind)
	doc.IsHidden = hidden != 0
	doc.PendingIndex = pending != 0
	if doc.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("%w: parsing created_at of document %d: %v", core.ErrPersistence, id, err)
	}
	if err := json.Unmarshal([]byte(keywords), &doc.Keywords); err != nil {
		return nil, fmt.Errorf("%w: parsing keywords of document %d: %v", core.ErrPersistence, id, err)
	}
	return &doc, nil
}

func (s *documentStore) UpdateText(ctx context.Context, id int64, text string) error {
	if text == "" {
		return fmt.Errorf("%w: document text is empty", core.ErrInvalidArgument)
	}
	return s.exec(ctx, id, "UPDATE documents SET text = ? WHERE id = ?", text, id)
}

func (s *documentStore) SetHidden(ctx context.Context, id int64, hidden bool) error {
	return s.exec(ctx, id, "UPDATE documents SET is_hidden = ? WHERE id = ?", boolToInt(hidden), id)
}

func (s *documentStore) SetKeywords(ctx context.Context, id int64, keywords []string) error {
	encoded, err := encodeKeywords(keywords)
	if err != nil {
		return err
	}
	return s.exec(ctx, id, "UPDATE documents SET keywords = ? WHERE id = ?", encoded, id)
}

func (s *documentStore) SetPendingIndex(ctx context.Context, id int64, pending bool) error {
	return s.exec(ctx, id, "UPDATE documents SET pending_index = ? WHERE id = ?", boolToInt(pending), id)
}

func (s *documentStore) ListIDs(ctx context.Context, filter core.DocumentFilter) ([]int64, error) {
	query := "SELECT id FROM documents WHERE 1=1"
	var args []any
	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if !filter.IncludeHidden {
		query += " AND is_hidden = 0"
	}
	if filter.PendingOnly {
		query += " AND pending_index = 1"
	}
	query += " ORDER BY id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", core.ErrPersistence, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning document id: %v", core.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: listing documents: %v", core.ErrPersistence, err)
	}
	return ids, nil
}

// exec runs a single-row update and turns zero affected rows into an
// invalid-argument error, so callers learn about dangling ids.
func (s *documentStore) exec(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: updating document %d: %v", core.ErrPersistence, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: updating document %d: %v", core.ErrPersistence, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: document %d not found", core.ErrInvalidArgument, id)
	}
	return nil
}

func encodeKeywords(keywords []string) (string, error) {
	if keywords == nil {
		keywords = []string{}
	}
	data, err := json.Marshal(keywords)
	if err != nil {
		return "", fmt.Errorf("%w: encoding keywords: %v", core.ErrPersistence, err)
	}
	return string(data), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
