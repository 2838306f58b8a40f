package backend

import (
	"context"
	"path/filepath"
	"testing"

	"bountytracker/internal/config"
)

func TestBackendType_IsValid(t *testing.T) {
	tests := []struct {
		bt   BackendType
		want bool
	}{
		{MemoryBackend, true},
		{SQLiteBackend, true},
		{MongoBackend, true},
		{BackendType("sheets"), false},
		{BackendType(""), false},
	}
	for _, tt := range tests {
		if got := tt.bt.IsValid(); got != tt.want {
			t.Errorf("BackendType(%q).IsValid() = %v, want %v", tt.bt, got, tt.want)
		}
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) error = nil")
	}

	app := config.Defaults()
	app.DataBackend = "mongo"
	app.MongoURI = "mongodb://localhost:27017"

	got, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != MongoBackend || got.MongoURI != app.MongoURI || got.MongoDatabase != "bountytracker" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	app.DataBackend = "nope"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig() with unknown backend error = nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory without seed", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"mongo without uri", Config{Type: MongoBackend}, true},
		{"unknown type", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: filepath.Join(t.TempDir(), "none.json")})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		sales, err := res.Backend.ListSales(ctx)
		if err != nil || len(sales) != 0 {
			t.Errorf("ListSales() = %v, %v; want empty", sales, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "b.db")})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer res.Cleanup()
		if _, ok := res.Backend.(Pinger); !ok {
			t.Error("sqlite backend does not implement Pinger")
		}
	})
}
