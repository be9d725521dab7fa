package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var ErrLegacySheet = errors.New("sheet uses the legacy Category layout; migrate it before writing")

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
	HomeCurrency       string
	// CacheTTL bounds how long a read snapshot is reused. Zero selects
	// DefaultCacheTTL; negative disables caching.
	CacheTTL time.Duration
}

// DefaultCacheTTL keeps dashboards from spending Sheets read quota on every request.
const DefaultCacheTTL = 30 * time.Second

// Store keeps the ledger in columns A:E of one sheet, row 1 being the header.
// Position p lives on the p-th non-blank data row.
type Store struct {
	mu            sync.Mutex
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	homeCurrency  string
	snapshots     *cache.LRU[[]core.Transaction]
}

// Ensure interface conformance
var _ ledger.Store = (*Store)(nil)

// New creates a Sheets-backed store authenticated with a service account.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Store, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = "Ledger"
	}
	slog.InfoContext(ctx, "Google Sheets service created", "sheet", sheet)
	s := &Store{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         sheet,
		homeCurrency:  cfg.HomeCurrency,
	}
	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	if ttl > 0 {
		s.snapshots = cache.New[[]core.Transaction](1, ttl)
	}
	return s, nil
}

// credentials resolves inline JSON, a key file, or GOOGLE_APPLICATION_CREDENTIALS.
func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.ServiceAccountJSON)
	file := strings.TrimSpace(cfg.ServiceAccountFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// ReadAll returns the ledger, served from the snapshot cache while it is fresh.
func (s *Store) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshots != nil {
		if txs, ok := s.snapshots.Get(s.sheet); ok {
			return append([]core.Transaction(nil), txs...), nil
		}
	}
	txs, _, _, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if s.snapshots != nil {
		s.snapshots.Set(s.sheet, append([]core.Transaction(nil), txs...))
	}
	return txs, nil
}

// CacheStats reports snapshot cache usage; zero when caching is disabled.
func (s *Store) CacheStats() cache.Stats {
	if s.snapshots == nil {
		return cache.Stats{}
	}
	return s.snapshots.Stats()
}

// invalidate must be called with mu held after any write attempt.
func (s *Store) invalidate() {
	if s.snapshots != nil {
		s.snapshots.Delete(s.sheet)
	}
}

func (s *Store) Append(ctx context.Context, t core.Transaction) (int, error) {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.invalidate()

	rng := fmt.Sprintf("%s!A:A", s.sheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to get sheet dimensions for %s: %w", s.sheet, err)
	}
	if len(resp.Values) == 0 {
		if err := s.writeRow(ctx, 1, ledger.Header); err != nil {
			return 0, fmt.Errorf("write header: %w", err)
		}
		resp.Values = [][]any{{ledger.Header[0]}}
	} else if head := toStrings(resp.Values[0]); len(head) > 0 && !strings.EqualFold(head[0], ledger.Header[0]) {
		return 0, fmt.Errorf("%w: %v", ledger.ErrBadHeader, head)
	}

	txs, _, schema, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	if schema == ledger.SchemaLegacy {
		return 0, ErrLegacySheet
	}

	nextRow := len(resp.Values) + 1
	if err := s.writeRow(ctx, nextRow, ledger.Encode(t)); err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Transaction appended to sheet", "sheet", s.sheet, "row", nextRow)
	return len(txs), nil
}

func (s *Store) UpdateAt(ctx context.Context, pos int, t core.Transaction) error {
	t = t.WithDefaults(s.homeCurrency)
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.invalidate()
	_, rows, schema, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := ledger.CheckPosition(pos, len(rows)); err != nil {
		return err
	}
	if schema == ledger.SchemaLegacy {
		return ErrLegacySheet
	}
	return s.writeRow(ctx, rows[pos], ledger.Encode(t))
}

func (s *Store) DeleteAt(ctx context.Context, pos int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.invalidate()
	_, rows, _, err := s.load(ctx)
	if err != nil {
		return err
	}
	if err := ledger.CheckPosition(pos, len(rows)); err != nil {
		return err
	}
	sheetID, err := s.sheetID(ctx)
	if err != nil {
		return err
	}
	row := int64(rows[pos])
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: row - 1,
			EndIndex:   row,
		}},
	}}}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row, s.sheet, err)
	}
	return nil
}

// load returns the decoded ledger and, per position, its 1-based sheet row.
func (s *Store) load(ctx context.Context) ([]core.Transaction, []int, ledger.Schema, error) {
	rng := fmt.Sprintf("%s!A:E", s.sheet)
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, nil, ledger.SchemaCanonical, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values, s.homeCurrency)
}

func (s *Store) writeRow(ctx context.Context, row int, cols []string) error {
	rng := fmt.Sprintf("%s!A%d:E%d", s.sheet, row, row)
	vals := make([]any, len(cols))
	for i, c := range cols {
		vals[i] = c
	}
	vr := &gsheet.ValueRange{Values: [][]any{vals}}
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return nil
}

func (s *Store) sheetID(ctx context.Context) (int64, error) {
	ss, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == s.sheet {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", s.sheet)
}
