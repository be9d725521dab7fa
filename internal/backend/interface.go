package backend

import (
	"context"
	"time"

	"fintrack/internal/ledger"
)

// Publisher announces ledger mutations to other processes
type Publisher interface {
	PublishLedgerChange(ctx context.Context, op string, position int) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the ledger store and optional collaborators
type BackendResult struct {
	Store ledger.Store
	// Publisher is nil when change events are disabled or the broker is unreachable.
	Publisher Publisher
	Cleanup   CleanupFunc
}

// Close runs Cleanup when set
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type         BackendType
	HomeCurrency string

	// CSV file, also the seed for the memory backend
	CSVPath string

	// SQLite specific
	SQLiteDBPath string

	// Change events, any backend
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
	// GoogleCacheTTL of zero uses the store default; negative disables caching
	GoogleCacheTTL time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	CSVBackend    BackendType = "csv"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case CSVBackend, SQLiteBackend, MemoryBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
