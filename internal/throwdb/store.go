package throwdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session groups the throws of one continuous detection run.
type Session struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	StartedAt int64  `json:"started_at"`
}

// Throw is a persisted fused result for one detection event.
type Throw struct {
	ThrowID         string          `json:"throw_id"`
	SessionID       string          `json:"session_id"`
	Segment         int             `json:"segment"`
	Multiplier      int             `json:"multiplier"`
	Score           int             `json:"score"`
	Method          string          `json:"method"`
	Confidence      float64         `json:"confidence"`
	BoardX          float64         `json:"board_x"`
	BoardY          float64         `json:"board_y"`
	TotalError      float64         `json:"total_error"`
	DiagnosticsJSON json.RawMessage `json:"diagnostics_json,omitempty"`
	CreatedAt       int64           `json:"created_at"`
}

// CameraDetection is the raw detector output one camera contributed to a
// throw, stored verbatim so runs can be replayed against new engine
// configurations.
type CameraDetection struct {
	ThrowID           string  `json:"throw_id"`
	CameraID          string  `json:"camera_id"`
	TipX              float64 `json:"tip_x"`
	TipY              float64 `json:"tip_y"`
	DirX              float64 `json:"dir_x"`
	DirY              float64 `json:"dir_y"`
	BarrelPixelCount  int     `json:"barrel_pixel_count"`
	BarrelAspectRatio float64 `json:"barrel_aspect_ratio"`
	InlierRatio       float64 `json:"inlier_ratio"`
	MaskQuality       float64 `json:"mask_quality"`
	VoteSegment       int     `json:"vote_segment"`
	VoteMultiplier    int     `json:"vote_multiplier"`
}

// ThrowStore provides persistence for sessions, throws and detections.
type ThrowStore struct {
	db *sql.DB
}

// NewThrowStore creates a new ThrowStore.
func NewThrowStore(db *ThrowDB) *ThrowStore {
	return &ThrowStore{db: db.DB}
}

// CreateSession persists a new session. If SessionID is empty, a UUID is
// generated.
func (s *ThrowStore) CreateSession(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.StartedAt == 0 {
		sess.StartedAt = time.Now().UnixNano()
	}
	return retryOnBusy(func() error {
		_, err := s.db.Exec(
			`INSERT INTO sessions (session_id, name, started_at) VALUES (?, ?, ?)`,
			sess.SessionID, sess.Name, sess.StartedAt)
		return err
	})
}

// InsertThrow persists a throw and its per-camera detections in one
// transaction. If ThrowID is empty, a UUID is generated.
func (s *ThrowStore) InsertThrow(th *Throw, dets []CameraDetection) error {
	if th.ThrowID == "" {
		th.ThrowID = uuid.New().String()
	}
	if th.CreatedAt == 0 {
		th.CreatedAt = time.Now().UnixNano()
	}

	var diagStr interface{}
	if len(th.DiagnosticsJSON) > 0 {
		diagStr = string(th.DiagnosticsJSON)
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		_, err = tx.Exec(`
			INSERT INTO throws (
				throw_id, session_id, segment, multiplier, score, method,
				confidence, board_x, board_y, total_error, diagnostics_json, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			th.ThrowID, th.SessionID, th.Segment, th.Multiplier, th.Score, th.Method,
			th.Confidence, th.BoardX, th.BoardY, th.TotalError, diagStr, th.CreatedAt,
		)
		if err != nil {
			return err
		}

		for i := range dets {
			d := &dets[i]
			d.ThrowID = th.ThrowID
			_, err = tx.Exec(`
				INSERT INTO camera_detections (
					throw_id, camera_id, tip_x, tip_y, dir_x, dir_y,
					barrel_pixel_count, barrel_aspect_ratio, inlier_ratio,
					mask_quality, vote_segment, vote_multiplier
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				d.ThrowID, d.CameraID, d.TipX, d.TipY, d.DirX, d.DirY,
				d.BarrelPixelCount, d.BarrelAspectRatio, d.InlierRatio,
				d.MaskQuality, d.VoteSegment, d.VoteMultiplier,
			)
			if err != nil {
				return err
			}
		}

		return tx.Commit()
	})
}

// GetThrow returns a single throw by ID.
func (s *ThrowStore) GetThrow(throwID string) (*Throw, error) {
	row := s.db.QueryRow(`
		SELECT throw_id, session_id, segment, multiplier, score, method,
		       confidence, board_x, board_y, total_error, diagnostics_json, created_at
		FROM throws
		WHERE throw_id = ?`, throwID)

	th, err := scanThrow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("throw %s not found", throwID)
		}
		return nil, fmt.Errorf("scan throw: %w", err)
	}
	return th, nil
}

// ListBySession returns all throws for a session, oldest first.
func (s *ThrowStore) ListBySession(sessionID string) ([]*Throw, error) {
	rows, err := s.db.Query(`
		SELECT throw_id, session_id, segment, multiplier, score, method,
		       confidence, board_x, board_y, total_error, diagnostics_json, created_at
		FROM throws
		WHERE session_id = ?
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query throws: %w", err)
	}
	defer rows.Close()

	var throws []*Throw
	for rows.Next() {
		th, err := scanThrow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan throw: %w", err)
		}
		throws = append(throws, th)
	}
	return throws, rows.Err()
}

// Detections returns the per-camera detections recorded for a throw.
func (s *ThrowStore) Detections(throwID string) ([]CameraDetection, error) {
	rows, err := s.db.Query(`
		SELECT throw_id, camera_id, tip_x, tip_y, dir_x, dir_y,
		       barrel_pixel_count, barrel_aspect_ratio, inlier_ratio,
		       mask_quality, vote_segment, vote_multiplier
		FROM camera_detections
		WHERE throw_id = ?
		ORDER BY camera_id`, throwID)
	if err != nil {
		return nil, fmt.Errorf("query detections: %w", err)
	}
	defer rows.Close()

	var dets []CameraDetection
	for rows.Next() {
		var d CameraDetection
		if err := rows.Scan(
			&d.ThrowID, &d.CameraID, &d.TipX, &d.TipY, &d.DirX, &d.DirY,
			&d.BarrelPixelCount, &d.BarrelAspectRatio, &d.InlierRatio,
			&d.MaskQuality, &d.VoteSegment, &d.VoteMultiplier,
		); err != nil {
			return nil, fmt.Errorf("scan detection: %w", err)
		}
		dets = append(dets, d)
	}
	return dets, rows.Err()
}

// Sessions returns all sessions, newest first.
func (s *ThrowStore) Sessions() ([]*Session, error) {
	rows, err := s.db.Query(`
		SELECT session_id, name, started_at
		FROM sessions
		ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SessionID, &sess.Name, &sess.StartedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// DeleteThrow removes a throw and its detections.
func (s *ThrowStore) DeleteThrow(throwID string) error {
	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM camera_detections WHERE throw_id = ?`, throwID); err != nil {
			return fmt.Errorf("delete detections: %w", err)
		}
		result, err := tx.Exec(`DELETE FROM throws WHERE throw_id = ?`, throwID)
		if err != nil {
			return fmt.Errorf("delete throw: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("throw %s not found", throwID)
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanThrow(row rowScanner) (*Throw, error) {
	var th Throw
	var diagStr sql.NullString
	err := row.Scan(
		&th.ThrowID, &th.SessionID, &th.Segment, &th.Multiplier, &th.Score, &th.Method,
		&th.Confidence, &th.BoardX, &th.BoardY, &th.TotalError, &diagStr, &th.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if diagStr.Valid {
		th.DiagnosticsJSON = json.RawMessage(diagStr.String)
	}
	return &th, nil
}
