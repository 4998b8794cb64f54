package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tfgraph/internal/tf"
)

// ErrLinkNotFound is returned when deleting a link id that is not stored.
var ErrLinkNotFound = errors.New("static link not found")

// StaticLink is a persisted parent/child link.
type StaticLink struct {
	ID          string     `json:"id"`
	Parent      string     `json:"parent"`
	Child       string     `json:"child"`
	Translation [3]float64 `json:"translation"`
	Rotation    [4]float64 `json:"rotation"` // x, y, z, w
	CreatedAt   time.Time  `json:"created_at"`
}

// Link converts the row into a tree link.
func (s StaticLink) Link() tf.Link {
	return tf.Link{
		Parent: s.Parent,
		Child:  s.Child,
		Pose: tf.NewPose(
			s.Translation[0], s.Translation[1], s.Translation[2],
			s.Rotation[0], s.Rotation[1], s.Rotation[2], s.Rotation[3],
		),
	}
}

// StaticLinkStore persists static links. A child frame has at most one
// stored link; Put on an existing child replaces its parent and pose.
type StaticLinkStore struct {
	db  *DB
	now func() time.Time
}

// NewStaticLinkStore creates a store backed by db.
func NewStaticLinkStore(db *DB) *StaticLinkStore {
	return &StaticLinkStore{db: db, now: time.Now}
}

// Put inserts or replaces the link for l.Child and returns the stored row.
func (s *StaticLinkStore) Put(l tf.Link) (StaticLink, error) {
	parent := tf.CanonicalFrameID(l.Parent)
	child := tf.CanonicalFrameID(l.Child)
	if parent == "" || child == "" {
		return StaticLink{}, fmt.Errorf("static link requires parent and child frames")
	}
	if parent == child {
		return StaticLink{}, fmt.Errorf("static link %q cannot be its own parent", child)
	}

	row := StaticLink{
		ID:          uuid.NewString(),
		Parent:      parent,
		Child:       child,
		Translation: [3]float64{l.Pose.Translation.X, l.Pose.Translation.Y, l.Pose.Translation.Z},
		Rotation:    [4]float64{l.Pose.Rotation.Imag, l.Pose.Rotation.Jmag, l.Pose.Rotation.Kmag, l.Pose.Rotation.Real},
		CreatedAt:   s.now(),
	}

	err := s.db.QueryRow(
		`INSERT INTO tf_static_links (
			link_id, parent_frame, child_frame, tx, ty, tz, qx, qy, qz, qw, created_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(child_frame) DO UPDATE SET
			parent_frame = excluded.parent_frame,
			tx = excluded.tx, ty = excluded.ty, tz = excluded.tz,
			qx = excluded.qx, qy = excluded.qy, qz = excluded.qz, qw = excluded.qw,
			created_at_ns = excluded.created_at_ns
		RETURNING link_id`,
		row.ID, row.Parent, row.Child,
		row.Translation[0], row.Translation[1], row.Translation[2],
		row.Rotation[0], row.Rotation[1], row.Rotation[2], row.Rotation[3],
		row.CreatedAt.UnixNano(),
	).Scan(&row.ID)
	if err != nil {
		return StaticLink{}, fmt.Errorf("failed to store static link %s->%s: %w", parent, child, err)
	}
	return row, nil
}

// List returns all stored links ordered by child frame.
func (s *StaticLinkStore) List() ([]StaticLink, error) {
	rows, err := s.db.Query(`SELECT link_id, parent_frame, child_frame,
			tx, ty, tz, qx, qy, qz, qw, created_at_ns
		FROM tf_static_links ORDER BY child_frame`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []StaticLink
	for rows.Next() {
		var (
			l         StaticLink
			createdNs int64
		)
		if err := rows.Scan(
			&l.ID, &l.Parent, &l.Child,
			&l.Translation[0], &l.Translation[1], &l.Translation[2],
			&l.Rotation[0], &l.Rotation[1], &l.Rotation[2], &l.Rotation[3],
			&createdNs,
		); err != nil {
			return nil, err
		}
		l.CreatedAt = time.Unix(0, createdNs)
		links = append(links, l)
	}
	return links, rows.Err()
}

// Links returns the stored rows as tree links.
func (s *StaticLinkStore) Links() ([]tf.Link, error) {
	rows, err := s.List()
	if err != nil {
		return nil, err
	}
	links := make([]tf.Link, 0, len(rows))
	for _, r := range rows {
		links = append(links, r.Link())
	}
	return links, nil
}

// Delete removes the link with the given id.
func (s *StaticLinkStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM tf_static_links WHERE link_id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLinkNotFound, id)
	}
	return nil
}

// Get returns the link with the given id.
func (s *StaticLinkStore) Get(id string) (StaticLink, error) {
	var (
		l         StaticLink
		createdNs int64
	)
	err := s.db.QueryRow(`SELECT link_id, parent_frame, child_frame,
			tx, ty, tz, qx, qy, qz, qw, created_at_ns
		FROM tf_static_links WHERE link_id = ?`, id).Scan(
		&l.ID, &l.Parent, &l.Child,
		&l.Translation[0], &l.Translation[1], &l.Translation[2],
		&l.Rotation[0], &l.Rotation[1], &l.Rotation[2], &l.Rotation[3],
		&createdNs,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return StaticLink{}, fmt.Errorf("%w: %s", ErrLinkNotFound, id)
	}
	if err != nil {
		return StaticLink{}, err
	}
	l.CreatedAt = time.Unix(0, createdNs)
	return l, nil
}
