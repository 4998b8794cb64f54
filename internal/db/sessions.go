package db

import (
	"fmt"
	"time"
)

// Session is one recorded accumulator session.
type Session struct {
	ID        string     `json:"id"`
	Reason    string     `json:"reason"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Frames    int        `json:"frames"`
	Samples   int        `json:"samples"`
}

// SessionStore records session lifecycles. It satisfies
// ingest.SessionRecorder.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a store backed by db.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// StartSession inserts an open session row.
func (s *SessionStore) StartSession(id, reason string, startedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO tf_sessions (session_id, reason, started_at_ns) VALUES (?, ?, ?)`,
		id, reason, startedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to start session %s: %w", id, err)
	}
	return nil
}

// EndSession closes a session and stores its final counts.
func (s *SessionStore) EndSession(id string, endedAt time.Time, frames, samples int) error {
	res, err := s.db.Exec(
		`UPDATE tf_sessions SET ended_at_ns = ?, frame_count = ?, sample_count = ?
		WHERE session_id = ?`,
		endedAt.UnixNano(), frames, samples, id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s was never started", id)
	}
	return nil
}

// ListSessions returns up to limit sessions, newest first. A limit <= 0
// returns every session.
func (s *SessionStore) ListSessions(limit int) ([]Session, error) {
	query := `SELECT session_id, reason, started_at_ns, ended_at_ns, frame_count, sample_count
		FROM tf_sessions ORDER BY started_at_ns DESC, session_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var (
			sess      Session
			startedNs int64
			endedNs   *int64
		)
		if err := rows.Scan(&sess.ID, &sess.Reason, &startedNs, &endedNs, &sess.Frames, &sess.Samples); err != nil {
			return nil, err
		}
		sess.StartedAt = time.Unix(0, startedNs)
		if endedNs != nil {
			ended := time.Unix(0, *endedNs)
			sess.EndedAt = &ended
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}
