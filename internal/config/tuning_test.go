package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/racecar/internal/control"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.FollowingSpeed == nil || *cfg.FollowingSpeed != 0.15 {
		t.Errorf("Expected FollowingSpeed 0.15, got %v", cfg.FollowingSpeed)
	}
	if cfg.DebounceTime == nil || *cfg.DebounceTime != "300ms" {
		t.Errorf("Expected DebounceTime '300ms', got %v", cfg.DebounceTime)
	}
	if got, want := cfg.GetSideWallGains(), (control.PIDConstants{Kp: 0.0035, Kd: 0.0008}); got != want {
		t.Errorf("GetSideWallGains() = %v, want %v", got, want)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaultsFileMatchesGetters(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultTuningConfig(), fromFile); diff != "" {
		t.Errorf("%s disagrees with getter defaults (-getters +file):\n%s", DefaultConfigPath, diff)
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "track.json")

	testJSON := `{
  "following_speed": 0.2,
  "debounce_time": "250ms",
  "center_wall_kp": 0.01,
  "line_colors": ["yellow"],
  "marker_finish": 11
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if got := cfg.GetFollowingSpeed(); got != 0.2 {
		t.Errorf("GetFollowingSpeed() = %v, want 0.2", got)
	}
	if got := cfg.GetDebounceTime(); got != 250*time.Millisecond {
		t.Errorf("GetDebounceTime() = %v, want 250ms", got)
	}
	if got := cfg.GetCenterWallGains(); got != (control.PIDConstants{Kp: 0.01, Kd: 0.001}) {
		t.Errorf("GetCenterWallGains() = %v, unset kd should keep its default", got)
	}
	if diff := cmp.Diff([]string{"yellow"}, cfg.GetLineColors()); diff != "" {
		t.Errorf("GetLineColors() mismatch:\n%s", diff)
	}
	if got := cfg.GetMarkerFinish(); got != 11 {
		t.Errorf("GetMarkerFinish() = %d, want 11", got)
	}
	if got := cfg.GetSideFollowingSpeed(); got != 0.135 {
		t.Errorf("GetSideFollowingSpeed() = %v, want default 0.135", got)
	}
}

func TestLoadTuningConfigErrors(t *testing.T) {
	tmpDir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"missing", filepath.Join(tmpDir, "absent.json"), "failed to stat"},
		{"extension", write("tuning.yaml", "{}"), ".json extension"},
		{"syntax", write("broken.json", `{"following_speed": `), "failed to parse"},
		{"invalid", write("fast.json", `{"following_speed": 1.5}`), "following_speed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadTuningConfig() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{"empty config is valid", &TuningConfig{}, false},
		{"negative rate limit", &TuningConfig{SpeedRateLimit: ptrFloat64(-0.2)}, true},
		{"speed above one", &TuningConfig{FollowingSpeed: ptrFloat64(1.2)}, true},
		{"bad debounce", &TuningConfig{DebounceTime: ptrString("soon")}, true},
		{"negative debounce", &TuningConfig{DebounceTime: ptrString("-1s")}, true},
		{"zero tick", &TuningConfig{TickInterval: ptrString("0s")}, true},
		{"zero cone threshold", &TuningConfig{ConeThreshold: ptrInt(0)}, true},
		{"zero odometry window", &TuningConfig{OdometryWindow: ptrInt(0)}, true},
		{"full revolution wall window", &TuningConfig{WallWindowWidth: ptrFloat64(360)}, true},
		{"front window over a revolution", &TuningConfig{FrontWindowWidth: ptrFloat64(400)}, true},
		{"wide wall window", &TuningConfig{WallWindowWidth: ptrFloat64(359)}, false},
		{"negative depth stop", &TuningConfig{DepthStopDistance: ptrFloat64(-1)}, true},
		{"gravity flag", &TuningConfig{GravityCompensation: ptrBool(true)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDurationGettersFallBack(t *testing.T) {
	cfg := &TuningConfig{BrakingDuration: ptrString("garbage"), TickInterval: ptrString("")}
	if got := cfg.GetBrakingDuration(); got != time.Second {
		t.Errorf("GetBrakingDuration() = %v, want 1s", got)
	}
	if got := cfg.GetTickInterval(); got != 16*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 16ms", got)
	}
}
