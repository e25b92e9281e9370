package history

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/acparceria818-png/Transporte-AC-2.0/internal/db"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/apperrors"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/shared/geo"
	"github.com/acparceria818-png/Transporte-AC-2.0/internal/tracking"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const defaultListLimit = 50

// Archiver stores an exported trip outside the database.
type Archiver interface {
	Archive(ctx context.Context, owner, key, contentType string, body []byte) error
}

type Service struct {
	db      db.Querier
	archive Archiver
}

func NewService(q db.Querier, archive Archiver) *Service {
	return &Service{db: q, archive: archive}
}

var _ tracking.Recorder = (*Service)(nil)

func (s *Service) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS track_sessions (
			id TEXT PRIMARY KEY,
			driver_id TEXT NOT NULL,
			driver_name TEXT NOT NULL DEFAULT '',
			bus_plate TEXT NOT NULL DEFAULT '',
			route_name TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ended_at TIMESTAMPTZ,
			total_distance_m DOUBLE PRECISION NOT NULL DEFAULT 0,
			max_speed_kmh INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'active'
		);
		CREATE INDEX IF NOT EXISTS track_sessions_driver_idx ON track_sessions (driver_id, started_at DESC);
		CREATE TABLE IF NOT EXISTS track_points (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES track_sessions(id) ON DELETE CASCADE,
			lat DOUBLE PRECISION NOT NULL,
			lng DOUBLE PRECISION NOT NULL,
			speed_kmh INTEGER NOT NULL DEFAULT 0,
			accuracy_m DOUBLE PRECISION NOT NULL DEFAULT 0,
			recorded_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS track_points_session_idx ON track_points (session_id, recorded_at);
	`)
	return err
}

// Begin opens a session for a trip that is starting.
func (s *Service) Begin(ctx context.Context, driverID, driverName, busPlate, routeName string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(ctx, `
		INSERT INTO track_sessions (id, driver_id, driver_name, bus_plate, route_name, started_at, status)
		VALUES ($1,$2,$3,$4,$5,now(),$6)
	`, id, driverID, driverName, busPlate, routeName, StatusActive)
	if err != nil {
		return "", err
	}
	return id, nil
}

// Point appends a fix to the session and grows its totals.
func (s *Service) Point(ctx context.Context, sessionID string, fix tracking.Fix) error {
	at := fix.At
	if at.IsZero() {
		at = time.Now()
	}
	var accuracy float64
	if fix.AccuracyM != nil {
		accuracy = *fix.AccuracyM
	}
	speed := fix.SpeedKmh()

	var lastLat, lastLng float64
	hasLast := true
	err := s.db.QueryRow(ctx, `
		SELECT lat, lng FROM track_points
		WHERE session_id=$1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1
	`, sessionID).Scan(&lastLat, &lastLng)
	if errors.Is(err, pgx.ErrNoRows) {
		hasLast = false
	} else if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO track_points (session_id, lat, lng, speed_kmh, accuracy_m, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, sessionID, fix.Lat, fix.Lng, speed, accuracy, at)
	if err != nil {
		return err
	}

	deltaM := 0.0
	if hasLast {
		deltaM = geo.HaversineKm(lastLat, lastLng, fix.Lat, fix.Lng) * 1000
	}
	_, err = s.db.Exec(ctx, `
		UPDATE track_sessions
		SET total_distance_m = total_distance_m + $2,
		    max_speed_kmh = GREATEST(max_speed_kmh, $3)
		WHERE id=$1
	`, sessionID, deltaM, speed)
	return err
}

// End closes the session and archives its GPX when an archiver is set. A
// failed upload is logged; the session is finished either way.
func (s *Service) End(ctx context.Context, sessionID string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE track_sessions SET ended_at=now(), status=$2
		WHERE id=$1 AND status=$3
	`, sessionID, StatusFinished, StatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return nil
	}
	if s.archive == nil {
		return nil
	}

	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		log.Printf("history: load session %s for archive: %v", sessionID, err)
		return nil
	}
	body, err := s.GPX(ctx, sessionID)
	if err != nil {
		log.Printf("history: export %s: %v", sessionID, err)
		return nil
	}
	key := fmt.Sprintf("trips/%s/%s.gpx", sess.DriverID, sessionID)
	if err := s.archive.Archive(ctx, sessionID, key, gpxContentType, body); err != nil {
		log.Printf("history: archive %s: %v", sessionID, err)
	}
	return nil
}

func (s *Service) Session(ctx context.Context, sessionID string) (Session, error) {
	var sess Session
	err := s.db.QueryRow(ctx, `
		SELECT id, driver_id, driver_name, bus_plate, route_name, started_at, ended_at, total_distance_m, max_speed_kmh, status
		FROM track_sessions WHERE id=$1
	`, sessionID).Scan(&sess.ID, &sess.DriverID, &sess.DriverName, &sess.BusPlate, &sess.RouteName,
		&sess.StartedAt, &sess.EndedAt, &sess.TotalDistanceM, &sess.MaxSpeedKmh, &sess.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, fmt.Errorf("session %s: %w", sessionID, apperrors.ErrNotFound)
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ByDriver lists a driver's sessions, newest first.
func (s *Service) ByDriver(ctx context.Context, driverID string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, driver_id, driver_name, bus_plate, route_name, started_at, ended_at, total_distance_m, max_speed_kmh, status
		FROM track_sessions WHERE driver_id=$1
		ORDER BY started_at DESC
		LIMIT $2
	`, driverID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.DriverID, &sess.DriverName, &sess.BusPlate, &sess.RouteName,
			&sess.StartedAt, &sess.EndedAt, &sess.TotalDistanceM, &sess.MaxSpeedKmh, &sess.Status); err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *Service) Summary(ctx context.Context, sessionID string) (Summary, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return Summary{}, err
	}

	var pointCount int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM track_points WHERE session_id=$1`, sessionID).Scan(&pointCount); err != nil {
		return Summary{}, err
	}

	duration := time.Since(sess.StartedAt)
	if sess.EndedAt != nil {
		duration = sess.EndedAt.Sub(sess.StartedAt)
	}
	avg := 0.0
	if duration.Seconds() > 0 {
		avg = sess.TotalDistanceM / duration.Seconds() * 3.6
	}

	return Summary{
		SessionID:       sess.ID,
		DriverID:        sess.DriverID,
		RouteName:       sess.RouteName,
		PointCount:      pointCount,
		DistanceM:       sess.TotalDistanceM,
		DurationSec:     int64(duration.Seconds()),
		AverageSpeedKmh: avg,
		MaxSpeedKmh:     sess.MaxSpeedKmh,
	}, nil
}

func (s *Service) Points(ctx context.Context, sessionID string) ([]TrackPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, session_id, lat, lng, speed_kmh, accuracy_m, recorded_at
		FROM track_points WHERE session_id=$1
		ORDER BY recorded_at, id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []TrackPoint{}
	for rows.Next() {
		var p TrackPoint
		if err := rows.Scan(&p.ID, &p.SessionID, &p.Lat, &p.Lng, &p.SpeedKmh, &p.AccuracyM, &p.RecordedAt); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// GPX exports the session as a GPX 1.1 track.
func (s *Service) GPX(ctx context.Context, sessionID string) ([]byte, error) {
	sess, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	points, err := s.Points(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return encodeGPX(sess, points)
}
