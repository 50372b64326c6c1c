package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"GW2_CHUNK_SIZE", "GW2_PACING", "DB_DRIVER", "SYNC_SCHEDULE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.ChunkSize != 200 {
		t.Errorf("ChunkSize = %d, want 200", cfg.Remote.ChunkSize)
	}
	if cfg.Remote.Pacing != time.Second {
		t.Errorf("Pacing = %v, want 1s", cfg.Remote.Pacing)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Driver = %q", cfg.Database.Driver)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GW2_CHUNK_SIZE", "50")
	t.Setenv("GW2_PACING", "250ms")
	t.Setenv("SYNC_FULL_CATALOG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Remote.ChunkSize != 50 || cfg.Remote.Pacing != 250*time.Millisecond {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	if !cfg.Sync.FullCatalog {
		t.Error("FullCatalog = false")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Driver: "sqlite"},
			Remote:   RemoteConfig{ChunkSize: 200, Pacing: time.Second},
			Sync:     SyncConfig{Schedule: "0 */6 * * *"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "bad driver", mutate: func(c *Config) { c.Database.Driver = "mysql" }, wantErr: true},
		{name: "chunk above ceiling", mutate: func(c *Config) { c.Remote.ChunkSize = 201 }, wantErr: true},
		{name: "chunk zero", mutate: func(c *Config) { c.Remote.ChunkSize = 0 }, wantErr: true},
		{name: "negative pacing", mutate: func(c *Config) { c.Remote.Pacing = -time.Second }, wantErr: true},
		{name: "bad schedule", mutate: func(c *Config) { c.Sync.Schedule = "every day" }, wantErr: true},
		{name: "scheduling disabled", mutate: func(c *Config) { c.Sync.Schedule = "" }, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
