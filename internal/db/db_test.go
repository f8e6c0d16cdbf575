package db

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/racecar/internal/monitoring"
)

var epoch = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func init() {
	monitoring.SetLogger(nil)
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "racecar.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createSession(t *testing.T, db *DB, id string, started time.Time) {
	t.Helper()
	if err := db.CreateSession(context.Background(), Session{ID: id, StartedAt: started, StartBehavior: "center_wall"}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
}

func TestNewDB_AppliesPragmasAndMigrations(t *testing.T) {
	db := setupTestDB(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	var busyTimeout int
	if err := db.QueryRow("PRAGMA busy_timeout").Scan(&busyTimeout); err != nil {
		t.Fatalf("Failed to query busy_timeout: %v", err)
	}
	if busyTimeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", busyTimeout)
	}

	latest, err := LatestMigrationVersion()
	if err != nil {
		t.Fatalf("LatestMigrationVersion failed: %v", err)
	}
	if latest != 2 {
		t.Errorf("latest migration = %d, want 2", latest)
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != latest || dirty {
		t.Errorf("MigrateVersion = %d dirty=%v, want %d clean", version, dirty, latest)
	}
}

func TestMigrateDownAndUp(t *testing.T) {
	db := setupTestDB(t)

	if err := db.MigrateDown(); err != nil {
		t.Fatalf("MigrateDown failed: %v", err)
	}
	version, _, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if version != 1 {
		t.Errorf("version after down = %d, want 1", version)
	}

	if err := db.MigrateUp(); err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}
	// Reopening an up-to-date database is a no-op.
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
}

func TestSessions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createSession(t, db, "a", epoch)
	createSession(t, db, "b", epoch.Add(time.Minute))
	if err := db.EndSession(ctx, "a", epoch.Add(30*time.Second)); err != nil {
		t.Fatalf("EndSession failed: %v", err)
	}

	sessions, err := db.Sessions(ctx, 0)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	ended := epoch.Add(30 * time.Second)
	want := []Session{
		{ID: "b", StartedAt: epoch.Add(time.Minute), StartBehavior: "center_wall", TuningJSON: "{}"},
		{ID: "a", StartedAt: epoch, EndedAt: &ended, StartBehavior: "center_wall", TuningJSON: "{}"},
	}
	if diff := cmp.Diff(want, sessions); diff != "" {
		t.Errorf("Sessions mismatch (-want +got):\n%s", diff)
	}

	limited, err := db.Sessions(ctx, 1)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "b" {
		t.Errorf("Sessions(1) = %+v, want only b", limited)
	}
}

func TestSession_Unknown(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if _, err := db.Session(ctx, "missing"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Session error = %v, want ErrNoSession", err)
	}
	if err := db.EndSession(ctx, "missing", epoch); !errors.Is(err, ErrNoSession) {
		t.Errorf("EndSession error = %v, want ErrNoSession", err)
	}
}

func TestCreateSession_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	createSession(t, db, "a", epoch)
	if err := db.CreateSession(context.Background(), Session{ID: "a", StartedAt: epoch}); err == nil {
		t.Error("expected duplicate session to fail")
	}
}

func TestInsertTelemetry(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	createSession(t, db, "run", epoch)

	ticks := []Tick{
		{SessionID: "run", Seq: 1, Time: epoch, Behavior: "center_wall", RequestedSpeed: 0.15, Speed: 0.02, Angle: 0.4, PosX: 0.1, VelZ: 0.5, Yaw: 0.01},
		{SessionID: "run", Seq: 2, Time: epoch.Add(16 * time.Millisecond), Behavior: "braking", RequestedSpeed: -0.3, Speed: -0.01},
	}
	transitions := []Transition{
		{SessionID: "run", Time: epoch.Add(16 * time.Millisecond), From: "center_wall", To: "braking", Fiducials: []int{9}},
		{SessionID: "run", Time: epoch.Add(time.Second), From: "braking", To: "stopped"},
	}
	if err := db.InsertTelemetry(ctx, ticks, transitions); err != nil {
		t.Fatalf("InsertTelemetry failed: %v", err)
	}
	if err := db.InsertTelemetry(ctx, nil, nil); err != nil {
		t.Fatalf("empty InsertTelemetry failed: %v", err)
	}

	gotTicks, err := db.Ticks(ctx, "run")
	if err != nil {
		t.Fatalf("Ticks failed: %v", err)
	}
	if diff := cmp.Diff(ticks, gotTicks); diff != "" {
		t.Errorf("Ticks mismatch (-want +got):\n%s", diff)
	}

	gotTransitions, err := db.Transitions(ctx, "run")
	if err != nil {
		t.Fatalf("Transitions failed: %v", err)
	}
	transitions[1].Fiducials = []int{}
	if diff := cmp.Diff(transitions, gotTransitions); diff != "" {
		t.Errorf("Transitions mismatch (-want +got):\n%s", diff)
	}

	s, err := db.Session(ctx, "run")
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if s.Ticks != 2 {
		t.Errorf("Session.Ticks = %d, want 2", s.Ticks)
	}
}

func TestAttachAdminRoutes_Backup(t *testing.T) {
	db := setupTestDB(t)
	createSession(t, db, "run", epoch)

	mux := http.NewServeMux()
	if err := db.AttachAdminRoutes(mux); err != nil {
		t.Fatalf("AttachAdminRoutes failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	gz, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("backup is not gzip: %v", err)
	}
	header := make([]byte, 16)
	if _, err := io.ReadFull(gz, header); err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if string(header) != "SQLite format 3\x00" {
		t.Errorf("backup header = %q", header)
	}
}
