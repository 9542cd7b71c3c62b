package normalize

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strings"
)

//go:embed countries.csv
var countriesCSV string

// CountryTable maps ISO 3166-1 alpha-2 codes to display country names.
// It is built once at startup from the bundled two-column reference
// dataset; a missing or malformed dataset is a startup failure, not a
// per-call one.
type CountryTable struct {
	codeToName map[string]string
}

// LoadCountryTable parses the embedded name,code dataset and inverts it
// for code lookups.
func LoadCountryTable() (*CountryTable, error) {
	r := csv.NewReader(strings.NewReader(countriesCSV))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse country reference data: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("country reference data is empty")
	}

	table := &CountryTable{codeToName: make(map[string]string, len(records))}
	for i, rec := range records {
		if i == 0 {
			continue // header
		}
		if len(rec) != 2 {
			return nil, fmt.Errorf("country reference row %d has %d columns, want 2", i, len(rec))
		}
		name := strings.TrimSpace(rec[0])
		code := strings.ToUpper(strings.TrimSpace(rec[1]))
		if name == "" || len(code) != 2 {
			return nil, fmt.Errorf("country reference row %d is malformed: %q", i, rec)
		}
		table.codeToName[code] = name
	}

	return table, nil
}

// NameForCode returns the display name for an alpha-2 code, or false for
// unknown codes. Lookup is case-insensitive.
func (t *CountryTable) NameForCode(code string) (string, bool) {
	name, ok := t.codeToName[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// Size reports how many codes the table holds.
func (t *CountryTable) Size() int {
	return len(t.codeToName)
}
