package backend

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/ledger/csvfile"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("postgres").IsValid() {
		t.Error("postgres should not be valid")
	}
	if got := GetBackendTypeStrings(); len(got) != 4 || got[0] != "csv" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}

	app := &config.Config{
		LedgerBackend:  "sqlite",
		SQLiteDBPath:   "x.db",
		HomeCurrency:   "EUR",
		AMQPRoutingKey: "ledger.changed",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.HomeCurrency != "EUR" || cfg.AMQPRoutingKey != "ledger.changed" {
		t.Errorf("unexpected config %+v", cfg)
	}

	app.LedgerBackend = "mongo"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"csv ok", Config{Type: CSVBackend, HomeCurrency: "PKR", CSVPath: "data.csv"}, false},
		{"csv without path", Config{Type: CSVBackend, HomeCurrency: "PKR"}, true},
		{"memory without seed", Config{Type: MemoryBackend, HomeCurrency: "PKR"}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, HomeCurrency: "PKR"}, true},
		{"sheets without id", Config{Type: SheetsBackend, HomeCurrency: "PKR"}, true},
		{"missing currency", Config{Type: MemoryBackend}, true},
		{"unknown type", Config{Type: "ftp", HomeCurrency: "PKR"}, true},
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

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	factory := NewFactory(nil)

	t.Run("csv", func(t *testing.T) {
		res, err := factory.CreateBackend(ctx, Config{Type: CSVBackend, HomeCurrency: "PKR", CSVPath: filepath.Join(dir, "ledger.csv")})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		defer res.Close()
		if _, ok := res.Store.(*csvfile.Store); !ok {
			t.Errorf("expected csv store, got %T", res.Store)
		}
		if res.Publisher != nil {
			t.Error("publisher must be nil without AMQP_URL")
		}
	})

	t.Run("memory", func(t *testing.T) {
		res, err := factory.CreateBackend(ctx, Config{Type: MemoryBackend, HomeCurrency: "PKR"})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*memory.Store); !ok {
			t.Errorf("expected memory store, got %T", res.Store)
		}
		pos, err := res.Store.Append(ctx, core.Transaction{Date: core.NewDate(2024, 1, 1), Amount: decimal.NewFromInt(5), Use: "tea"})
		if err != nil || pos != 0 {
			t.Fatalf("Append = %d, %v", pos, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		res, err := factory.CreateBackend(ctx, Config{Type: SQLiteBackend, HomeCurrency: "PKR", SQLiteDBPath: filepath.Join(dir, "ledger.db")})
		if err != nil {
			t.Fatalf("CreateBackend: %v", err)
		}
		if _, ok := res.Store.(*storage.SQLiteRepository); !ok {
			t.Errorf("expected sqlite store, got %T", res.Store)
		}
		if err := res.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := factory.CreateBackend(ctx, Config{Type: "ftp", HomeCurrency: "PKR"}); err == nil {
			t.Error("expected error")
		}
	})
}
