package google

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

// parseRows converts a values matrix (as returned by the Sheets API) into
// transactions. rows[i] is the 1-based sheet row of transaction i; blank rows
// are skipped without consuming a position.
func parseRows(values [][]interface{}, homeCurrency string) ([]core.Transaction, []int, ledger.Schema, error) {
	if len(values) == 0 {
		return nil, nil, ledger.SchemaCanonical, nil
	}
	codec, err := ledger.NewCodec(toStrings(values[0]), homeCurrency)
	if err != nil {
		return nil, nil, ledger.SchemaCanonical, err
	}
	var (
		txs  []core.Transaction
		rows []int
	)
	for i := 1; i < len(values); i++ {
		cols := toStrings(values[i])
		if strings.Join(cols, "") == "" {
			continue
		}
		t, err := codec.Decode(cols)
		if err != nil {
			return nil, nil, codec.Schema, fmt.Errorf("sheet row %d: %w", i+1, err)
		}
		txs = append(txs, t)
		rows = append(rows, i+1)
	}
	return txs, rows, codec.Schema, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
