package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/banshee-data/racecar/internal/vehicle"
)

// Tick is one stored control tick.
type Tick struct {
	SessionID      string    `json:"session_id"`
	Seq            int64     `json:"seq"`
	Time           time.Time `json:"time"`
	Behavior       string    `json:"behavior"`
	RequestedSpeed float64   `json:"requested_speed"`
	RequestedAngle float64   `json:"requested_angle"`
	Speed          float64   `json:"speed"`
	Angle          float64   `json:"angle"`
	PosX           float64   `json:"pos_x"`
	PosY           float64   `json:"pos_y"`
	PosZ           float64   `json:"pos_z"`
	VelX           float64   `json:"vel_x"`
	VelY           float64   `json:"vel_y"`
	VelZ           float64   `json:"vel_z"`
	Yaw            float64   `json:"yaw"`
}

// TickFromRecord flattens a control loop record into a row. Yaw is the
// rotation about the vertical (y) axis.
func TickFromRecord(r vehicle.TickRecord) Tick {
	return Tick{
		SessionID:      r.SessionID,
		Seq:            r.Seq,
		Time:           r.Time,
		Behavior:       string(r.Behavior),
		RequestedSpeed: r.Requested.Speed,
		RequestedAngle: r.Requested.Angle,
		Speed:          r.Speed,
		Angle:          r.Angle,
		PosX:           r.Odometry.Position.X,
		PosY:           r.Odometry.Position.Y,
		PosZ:           r.Odometry.Position.Z,
		VelX:           r.Odometry.Velocity.X,
		VelY:           r.Odometry.Velocity.Y,
		VelZ:           r.Odometry.Velocity.Z,
		Yaw:            r.Odometry.AngularPosition.Y,
	}
}

// Transition is one stored behavior change.
type Transition struct {
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Fiducials []int     `json:"fiducials"`
}

// TransitionFromRecord converts a control loop record into a row.
func TransitionFromRecord(r vehicle.TransitionRecord) Transition {
	return Transition{
		SessionID: r.SessionID,
		Time:      r.Time,
		From:      string(r.From),
		To:        string(r.To),
		Fiducials: r.Fiducials,
	}
}

const insertTick = `INSERT OR REPLACE INTO ticks (
	session_id, seq, time_ns, behavior, requested_speed, requested_angle,
	speed, angle, pos_x, pos_y, pos_z, vel_x, vel_y, vel_z, yaw
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertTransition = `INSERT INTO transitions (
	session_id, time_ns, from_behavior, to_behavior, fiducials_json
) VALUES (?, ?, ?, ?, ?)`

// InsertTelemetry writes ticks and transitions in one transaction.
func (db *DB) InsertTelemetry(ctx context.Context, ticks []Tick, transitions []Transition) error {
	if len(ticks) == 0 && len(transitions) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin telemetry transaction: %w", err)
	}
	defer tx.Rollback()

	if len(ticks) > 0 {
		stmt, err := tx.PrepareContext(ctx, insertTick)
		if err != nil {
			return fmt.Errorf("failed to prepare tick insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range ticks {
			if _, err := stmt.ExecContext(ctx,
				t.SessionID, t.Seq, t.Time.UnixNano(), t.Behavior, t.RequestedSpeed, t.RequestedAngle,
				t.Speed, t.Angle, t.PosX, t.PosY, t.PosZ, t.VelX, t.VelY, t.VelZ, t.Yaw,
			); err != nil {
				return fmt.Errorf("failed to insert tick %d: %w", t.Seq, err)
			}
		}
	}

	for _, tr := range transitions {
		fiducials := tr.Fiducials
		if fiducials == nil {
			fiducials = []int{}
		}
		b, err := json.Marshal(fiducials)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertTransition,
			tr.SessionID, tr.Time.UnixNano(), tr.From, tr.To, string(b),
		); err != nil {
			return fmt.Errorf("failed to insert transition: %w", err)
		}
	}

	return tx.Commit()
}

// Ticks returns a session's ticks in order.
func (db *DB) Ticks(ctx context.Context, sessionID string) ([]Tick, error) {
	rows, err := db.QueryContext(ctx, `SELECT
		session_id, seq, time_ns, behavior, requested_speed, requested_angle,
		speed, angle, pos_x, pos_y, pos_z, vel_x, vel_y, vel_z, yaw
		FROM ticks WHERE session_id = ? ORDER BY seq`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticks: %w", err)
	}
	defer rows.Close()

	var ticks []Tick
	for rows.Next() {
		var (
			t  Tick
			ns int64
		)
		if err := rows.Scan(
			&t.SessionID, &t.Seq, &ns, &t.Behavior, &t.RequestedSpeed, &t.RequestedAngle,
			&t.Speed, &t.Angle, &t.PosX, &t.PosY, &t.PosZ, &t.VelX, &t.VelY, &t.VelZ, &t.Yaw,
		); err != nil {
			return nil, err
		}
		t.Time = time.Unix(0, ns).UTC()
		ticks = append(ticks, t)
	}
	return ticks, rows.Err()
}

// Transitions returns a session's behavior changes in order.
func (db *DB) Transitions(ctx context.Context, sessionID string) ([]Transition, error) {
	rows, err := db.QueryContext(ctx, `SELECT session_id, time_ns, from_behavior, to_behavior, fiducials_json
		FROM transitions WHERE session_id = ? ORDER BY time_ns, rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var (
			tr        Transition
			ns        int64
			fiducials sql.NullString
		)
		if err := rows.Scan(&tr.SessionID, &ns, &tr.From, &tr.To, &fiducials); err != nil {
			return nil, err
		}
		tr.Time = time.Unix(0, ns).UTC()
		if fiducials.Valid {
			if err := json.Unmarshal([]byte(fiducials.String), &tr.Fiducials); err != nil {
				return nil, fmt.Errorf("failed to decode fiducials: %w", err)
			}
		}
		transitions = append(transitions, tr)
	}
	return transitions, rows.Err()
}
