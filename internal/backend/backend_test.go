package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"budgetflow/internal/config"
	"budgetflow/internal/core"
	"budgetflow/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Defaults()
	app.DataBackend = "sqlite"
	app.SQLiteDBPath = "/tmp/x.db"

	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig() should reject unknown backends")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) should fail")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "a.db"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenBackends(t *testing.T) {
	dir := t.TempDir()
	configs := []Config{
		{Type: MemoryBackend},
		{Type: MemoryBackend, SeedFile: filepath.Join(dir, "seed.toml")},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "budgets.db")},
	}

	for _, cfg := range configs {
		t.Run(string(cfg.Type)+cfg.SeedFile, func(t *testing.T) {
			ctx := context.Background()
			store, err := Open(ctx, cfg, log.Discard())
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer store.Close()

			if err := store.Ping(ctx); err != nil {
				t.Fatalf("Ping() error = %v", err)
			}
			p, err := store.CreatePeriod(ctx, core.Period{Name: "May 2025", Month: time.May, Year: 2025})
			if err != nil {
				t.Fatalf("CreatePeriod() error = %v", err)
			}
			got, err := store.GetPeriod(ctx, p.ID)
			if err != nil || got.Month != time.May {
				t.Errorf("GetPeriod() = %+v, %v", got, err)
			}
		})
	}
}
