package ledger

import (
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// Header is the canonical column layout.
var Header = []string{"Date", "Amount", "Currency", "Use", "Comment"}

// LegacyHeader is the older layout where Category carries the direction and
// amounts are unsigned.
var LegacyHeader = []string{"Date", "Amount", "Category", "Use"}

var ErrBadHeader = errors.New("unrecognized ledger header")

// Schema identifies which layout a table was written with.
type Schema int

const (
	SchemaCanonical Schema = iota
	SchemaLegacy
)

// Codec decodes rows of one table. Column positions are resolved once from
// the header so rows are never treated as loose maps.
type Codec struct {
	Schema       Schema
	HomeCurrency string

	date, amount, currency, use, comment, category int
}

// NewCodec validates header and locates its columns.
func NewCodec(header []string, homeCurrency string) (*Codec, error) {
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	col := func(name string) int {
		if i, ok := idx[strings.ToLower(name)]; ok {
			return i
		}
		return -1
	}

	c := &Codec{
		HomeCurrency: homeCurrency,
		date:         col("Date"),
		amount:       col("Amount"),
		currency:     col("Currency"),
		use:          col("Use"),
		comment:      col("Comment"),
		category:     col("Category"),
	}
	if c.date < 0 || c.amount < 0 || c.use < 0 {
		return nil, fmt.Errorf("%w: %v", ErrBadHeader, header)
	}
	switch {
	case c.currency >= 0:
		c.Schema = SchemaCanonical
	case c.category >= 0:
		c.Schema = SchemaLegacy
	default:
		return nil, fmt.Errorf("%w: need Currency or Category column, got %v", ErrBadHeader, header)
	}
	return c, nil
}

// Decode converts one data row. Legacy rows take their sign from the
// category code and their currency from the home currency.
func (c *Codec) Decode(row []string) (core.Transaction, error) {
	get := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	date, err := core.ParseDate(get(c.date))
	if err != nil {
		return core.Transaction{}, err
	}
	amount, err := core.ParseAmount(get(c.amount))
	if err != nil {
		return core.Transaction{}, err
	}
	t := core.Transaction{
		Date:    date,
		Amount:  amount,
		Use:     get(c.use),
		Comment: get(c.comment),
	}

	if c.Schema == SchemaLegacy {
		kind, err := ParseLegacyCategory(get(c.category))
		if err != nil {
			return core.Transaction{}, err
		}
		t.Amount = kind.Signed(amount)
	} else {
		t.Currency = get(c.currency)
	}
	return t.WithDefaults(c.HomeCurrency), nil
}

// DecodeAll decodes rows, reporting the 1-based data row number on failure.
// Fully blank rows are skipped.
func (c *Codec) DecodeAll(rows [][]string) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		t, err := c.Decode(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// Encode renders t in the canonical layout.
func Encode(t core.Transaction) []string {
	return []string{t.Date.String(), core.EncodeAmount(t.Amount), t.Currency, t.Use, t.Comment}
}

// ParseLegacyCategory maps the old direction codes: Z (or Income) is income,
// X (or Expense) is expenditure.
func ParseLegacyCategory(s string) (core.Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Z", "INCOME":
		return core.Income, nil
	case "X", "EXPENSE", "EXPENDITURE":
		return core.Expense, nil
	}
	return "", fmt.Errorf("%w: legacy category %q", core.ErrInvalidKind, s)
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
