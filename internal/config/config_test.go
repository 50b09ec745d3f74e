package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		dir := t.TempDir()
		configDir := filepath.Join(dir, ".tracking")
		if err := os.MkdirAll(configDir, 0755); err != nil {
			t.Fatalf("setup: mkdir failed: %v", err)
		}

		data := `{
  "name": "widget",
  "project_type": "go",
  "description": "a widget",
  "schema_version": 3,
  "auto_backup": false,
  "stale_hours": 4,
  "search": {"half_life_days": 10, "weights": {"topic": 5}}
}`
		if err := os.WriteFile(filepath.Join(configDir, "config.json"), []byte(data), 0644); err != nil {
			t.Fatalf("setup: write failed: %v", err)
		}

		cfg, err := Load(dir)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if cfg.Name != "widget" {
			t.Errorf("Name: got %q, want %q", cfg.Name, "widget")
		}
		if cfg.SchemaVersion != 3 {
			t.Errorf("SchemaVersion: got %d, want 3", cfg.SchemaVersion)
		}
		if cfg.AutoBackup {
			t.Error("AutoBackup: explicit false should be kept")
		}
		if !cfg.AutoSession {
			t.Error("AutoSession: missing field should default to true")
		}
		if cfg.StaleAfter() != 4*time.Hour {
			t.Errorf("StaleAfter: got %v, want 4h", cfg.StaleAfter())
		}
		if cfg.Search.HalfLifeDays != 10 {
			t.Errorf("HalfLifeDays: got %v, want 10", cfg.Search.HalfLifeDays)
		}
		if cfg.Search.Weights["topic"] != 5 {
			t.Errorf("topic weight override lost: %v", cfg.Search.Weights["topic"])
		}
		if cfg.Search.Weights["rationale"] != 1 {
			t.Errorf("rationale weight should keep default, got %v", cfg.Search.Weights["rationale"])
		}
	})

	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := Load(t.TempDir())
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if cfg.StaleHours != 8 {
			t.Errorf("StaleHours default: got %v, want 8", cfg.StaleHours)
		}
		if cfg.Search.HalfLifeDays != 30 {
			t.Errorf("HalfLifeDays default: got %v, want 30", cfg.Search.HalfLifeDays)
		}
		if cfg.Driver != DriverModernc {
			t.Errorf("Driver default: got %q", cfg.Driver)
		}
		if cfg.GitSyncLimit != 50 {
			t.Errorf("GitSyncLimit default: got %d", cfg.GitSyncLimit)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.MkdirAll(filepath.Join(dir, ".tracking"), 0755); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if err := os.WriteFile(Path(dir), []byte("{not json"), 0644); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if _, err := Load(dir); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"negative stale hours", `{"stale_hours": -1}`, "stale_hours"},
		{"unknown driver", `{"driver": "postgres"}`, "driver"},
		{"bad commit mode", `{"auto_commit_mode": "sometimes"}`, "auto_commit_mode"},
		{"negative weight", `{"search": {"weights": {"topic": -2}}}`, "search.weights.topic"},
		{"negative half life", `{"search": {"half_life_days": -3}}`, "half_life_days"},
		{"unknown project type", `{"project_type": "cobol"}`, "project_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Name = "roundtrip"
	cfg.ProjectType = "rust"
	cfg.SchemaVersion = 7

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != cfg.Name || loaded.ProjectType != cfg.ProjectType || loaded.SchemaVersion != 7 {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
	if !loaded.AutoBackup || !loaded.AutoSession {
		t.Error("boolean defaults should survive a save")
	}
}

func TestSaveRejectsInvalid(t *testing.T) {
	cfg := Default()
	cfg.Driver = "nope"
	if err := Save(t.TempDir(), cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"go module", map[string]string{"go.mod": "module x"}, "go"},
		{"cargo", map[string]string{"Cargo.toml": ""}, "rust"},
		{"python", map[string]string{"setup.py": ""}, "python"},
		{"react app", map[string]string{"package.json": `{"dependencies": {"react": "18"}}`}, "web"},
		{"node lib", map[string]string{"package.json": `{"name": "lib"}`}, "javascript"},
		{"docs only", map[string]string{"README.md": "# hi"}, "documentation"},
		{"empty", nil, "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
					t.Fatal(err)
				}
			}
			if got := DetectProjectType(dir); got != tt.want {
				t.Errorf("DetectProjectType = %q, want %q", got, tt.want)
			}
		})
	}
}
