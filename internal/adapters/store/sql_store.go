package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mikey/thread-triage/internal/core"
)

// dialect holds the statements that differ between SQL engines
type dialect struct {
	name         string
	schema       []string
	insertIgnore string
}

// SQLStore is a ThreadStore backed by a SQL database. Threads, their messages,
// participants and referenced ids live in separate tables so every lookup of
// the matcher is a single indexed query.
type SQLStore struct {
	db      *sqlx.DB
	dialect dialect
	logger  *zap.Logger
}

type threadRow struct {
	ID                string `db:"id"`
	Subject           string `db:"subject"`
	NormalizedSubject string `db:"normalized_subject"`
	CreatedAt         int64  `db:"created_at"`
	LastUpdated       int64  `db:"last_updated"`
	Priority          string `db:"priority"`
	Summary           string `db:"summary"`
}

func newSQLStore(db *sqlx.DB, d dialect, logger *zap.Logger) (*SQLStore, error) {
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create %s schema: %w", d.name, err)
		}
	}
	return &SQLStore{db: db, dialect: d, logger: logger}, nil
}

// FindByMessageID returns the thread containing messageID
func (s *SQLStore) FindByMessageID(ctx context.Context, messageID string) (*core.Thread, error) {
	return s.FindByAnyReference(ctx, []string{messageID})
}

// FindByAnyReference returns the most recently updated thread containing any of ids
func (s *SQLStore) FindByAnyReference(ctx context.Context, ids []string) (*core.Thread, error) {
	return s.findOne(ctx, `
		SELECT t.id FROM threads t
		JOIN thread_messages m ON m.thread_id = t.id
		WHERE m.message_id IN (?)
		ORDER BY t.last_updated DESC, t.id DESC
		LIMIT 1`, nonEmpty(ids))
}

// FindByReferrer returns the most recently updated thread holding a message
// that replies to or references any of ids
func (s *SQLStore) FindByReferrer(ctx context.Context, ids []string) (*core.Thread, error) {
	return s.findOne(ctx, `
		SELECT t.id FROM threads t
		JOIN thread_links l ON l.thread_id = t.id
		WHERE l.linked_id IN (?)
		ORDER BY t.last_updated DESC, t.id DESC
		LIMIT 1`, nonEmpty(ids))
}

// FindBySubjectWithParticipantOverlap returns the most recently updated thread with
// the normalized subject that shares a participant with emails
func (s *SQLStore) FindBySubjectWithParticipantOverlap(ctx context.Context, normalizedSubject string, emails []string) (*core.Thread, error) {
	emails = nonEmpty(emails)
	if len(emails) == 0 {
		return nil, core.ErrThreadNotFound
	}

	query, args, err := sqlx.In(`
		SELECT t.id FROM threads t
		JOIN thread_participants p ON p.thread_id = t.id
		WHERE t.normalized_subject = ? AND p.email IN (?)
		ORDER BY t.last_updated DESC, t.id DESC
		LIMIT 1`, normalizedSubject, emails)
	if err != nil {
		return nil, fmt.Errorf("failed to build subject query: %w", err)
	}
	return s.getByQuery(ctx, query, args)
}

// FindAllLinked returns every thread containing or referring to any of ids, oldest first
func (s *SQLStore) FindAllLinked(ctx context.Context, ids []string) ([]*core.Thread, error) {
	ids = nonEmpty(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`
		SELECT id FROM threads
		WHERE id IN (SELECT thread_id FROM thread_messages WHERE message_id IN (?))
		   OR id IN (SELECT thread_id FROM thread_links WHERE linked_id IN (?))
		ORDER BY created_at ASC, id ASC`, ids, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build linked query: %w", err)
	}

	var threadIDs []string
	if err := s.db.SelectContext(ctx, &threadIDs, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query linked threads: %w", err)
	}
	return s.loadAll(ctx, threadIDs)
}

// Create stores a new thread with its initial messages
func (s *SQLStore) Create(ctx context.Context, thread *core.Thread) (string, error) {
	id := thread.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO threads (id, subject, normalized_subject, created_at, last_updated, priority, summary)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, thread.Subject, thread.NormalizedSubject,
			thread.CreatedAt.UnixNano(), thread.LastUpdated.UnixNano(),
			string(thread.Priority), thread.Summary)
		if err != nil {
			return fmt.Errorf("failed to insert thread: %w", err)
		}
		for i, ref := range thread.Messages {
			if err := s.insertMessage(ctx, tx, id, int64(i+1), ref); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("Created thread", zap.String("thread_id", id), zap.String("store", s.dialect.name))
	return id, nil
}

// Append adds a message to the end of a thread
func (s *SQLStore) Append(ctx context.Context, threadID string, ref core.MessageRef, at time.Time) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE threads SET last_updated = ? WHERE id = ?`, at.UnixNano(), threadID)
		if err != nil {
			return fmt.Errorf("failed to touch thread: %w", err)
		}
		if err := requireRow(res, threadID); err != nil {
			return err
		}

		var seq int64
		if err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq), 0) FROM thread_messages WHERE thread_id = ?`, threadID); err != nil {
			return fmt.Errorf("failed to read message sequence: %w", err)
		}
		return s.insertMessage(ctx, tx, threadID, seq+1, ref)
	})
}

// Get returns a thread by id
func (s *SQLStore) Get(ctx context.Context, threadID string) (*core.Thread, error) {
	var row threadRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM threads WHERE id = ?`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query thread: %w", err)
	}

	var payloads []string
	err = s.db.SelectContext(ctx, &payloads, `SELECT payload FROM thread_messages WHERE thread_id = ? ORDER BY seq ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thread messages: %w", err)
	}

	thread := &core.Thread{
		ID:                row.ID,
		Subject:           row.Subject,
		NormalizedSubject: row.NormalizedSubject,
		CreatedAt:         time.Unix(0, row.CreatedAt).UTC(),
		LastUpdated:       time.Unix(0, row.LastUpdated).UTC(),
		Priority:          core.Priority(row.Priority),
		Summary:           row.Summary,
		Messages:          make([]core.MessageRef, 0, len(payloads)),
	}
	for _, p := range payloads {
		var ref core.MessageRef
		if err := json.Unmarshal([]byte(p), &ref); err != nil {
			return nil, fmt.Errorf("failed to decode message of thread %s: %w", threadID, err)
		}
		thread.Messages = append(thread.Messages, ref)
	}
	return thread, nil
}

// List returns up to limit threads
func (s *SQLStore) List(ctx context.Context, limit int, byRecency bool) ([]*core.Thread, error) {
	query := `SELECT id FROM threads ORDER BY created_at ASC, id ASC`
	if byRecency {
		query = `SELECT id FROM threads ORDER BY last_updated DESC, id DESC`
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return s.loadAll(ctx, ids)
}

// UpdateSummary sets the summary of a thread
func (s *SQLStore) UpdateSummary(ctx context.Context, threadID string, summary string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE threads SET summary = ? WHERE id = ?`, summary, threadID)
	if err != nil {
		return fmt.Errorf("failed to update summary: %w", err)
	}
	return requireRow(res, threadID)
}

// UpdatePriority sets the priority of a thread
func (s *SQLStore) UpdatePriority(ctx context.Context, threadID string, priority core.Priority) error {
	res, err := s.db.ExecContext(ctx, `UPDATE threads SET priority = ? WHERE id = ?`, string(priority), threadID)
	if err != nil {
		return fmt.Errorf("failed to update priority: %w", err)
	}
	return requireRow(res, threadID)
}

// Merge moves the messages of fromID onto intoID and removes fromID
func (s *SQLStore) Merge(ctx context.Context, intoID, fromID string) error {
	if intoID == fromID {
		return nil
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var rows []threadRow
		query, args, err := sqlx.In(`SELECT * FROM threads WHERE id IN (?)`, []string{intoID, fromID})
		if err != nil {
			return fmt.Errorf("failed to build merge query: %w", err)
		}
		if err := tx.SelectContext(ctx, &rows, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to load threads for merge: %w", err)
		}
		if len(rows) != 2 {
			return fmt.Errorf("merge %s into %s: %w", fromID, intoID, core.ErrThreadNotFound)
		}
		lastUpdated := rows[0].LastUpdated
		if rows[1].LastUpdated > lastUpdated {
			lastUpdated = rows[1].LastUpdated
		}

		var offset int64
		if err := tx.GetContext(ctx, &offset, `SELECT COALESCE(MAX(seq), 0) FROM thread_messages WHERE thread_id = ?`, intoID); err != nil {
			return fmt.Errorf("failed to read message sequence: %w", err)
		}

		stmts := []struct {
			query string
			args  []interface{}
		}{
			{`UPDATE thread_messages SET thread_id = ?, seq = seq + ? WHERE thread_id = ?`, []interface{}{intoID, offset, fromID}},
			{s.dialect.insertIgnore + ` INTO thread_participants (thread_id, email) SELECT ?, email FROM thread_participants WHERE thread_id = ?`, []interface{}{intoID, fromID}},
			{s.dialect.insertIgnore + ` INTO thread_links (thread_id, linked_id) SELECT ?, linked_id FROM thread_links WHERE thread_id = ?`, []interface{}{intoID, fromID}},
			{`DELETE FROM thread_participants WHERE thread_id = ?`, []interface{}{fromID}},
			{`DELETE FROM thread_links WHERE thread_id = ?`, []interface{}{fromID}},
			{`DELETE FROM threads WHERE id = ?`, []interface{}{fromID}},
			{`UPDATE threads SET last_updated = ? WHERE id = ?`, []interface{}{lastUpdated, intoID}},
		}
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.query, st.args...); err != nil {
				return fmt.Errorf("failed to merge threads: %w", err)
			}
		}
		return nil
	})
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) insertMessage(ctx context.Context, tx *sqlx.Tx, threadID string, seq int64, ref core.MessageRef) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO thread_messages (thread_id, seq, message_id, payload)
		VALUES (?, ?, ?, ?)`, threadID, seq, ref.MessageID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	for _, email := range ref.ParticipantEmails() {
		_, err := tx.ExecContext(ctx, s.dialect.insertIgnore+` INTO thread_participants (thread_id, email) VALUES (?, ?)`, threadID, email)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	for _, linked := range ref.LinkedIDs() {
		_, err := tx.ExecContext(ctx, s.dialect.insertIgnore+` INTO thread_links (thread_id, linked_id) VALUES (?, ?)`, threadID, linked)
		if err != nil {
			return fmt.Errorf("failed to insert link: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) findOne(ctx context.Context, query string, ids []string) (*core.Thread, error) {
	if len(ids) == 0 {
		return nil, core.ErrThreadNotFound
	}
	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build lookup query: %w", err)
	}
	return s.getByQuery(ctx, query, args)
}

func (s *SQLStore) getByQuery(ctx context.Context, query string, args []interface{}) (*core.Thread, error) {
	var id string
	err := s.db.GetContext(ctx, &id, s.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up thread: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) loadAll(ctx context.Context, ids []string) ([]*core.Thread, error) {
	threads := make([]*core.Thread, 0, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, id)
		if errors.Is(err, core.ErrThreadNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, nil
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func requireRow(res sql.Result, threadID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("thread %s: %w", threadID, core.ErrThreadNotFound)
	}
	return nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

var _ core.ThreadStore = (*SQLStore)(nil)
