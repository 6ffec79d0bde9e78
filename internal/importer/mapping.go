package importer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var ErrUnknownColumn = errors.New("importer: unknown target column")

// Mapping maps a source header to a target property column.
type Mapping map[string]string

// aliases are header spellings that map to a column without sharing its name.
var aliases = map[string]string{
	"sqft":        "square_feet",
	"sq_ft":       "square_feet",
	"sqft_gla":    "square_feet",
	"units":       "num_units",
	"beds":        "bedrooms",
	"baths":       "bathrooms",
	"loan_number": "source_loan_number",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeHeader lower-cases a header and collapses every run of
// non-alphanumerics into a single '_', trimming it from both ends.
func NormalizeHeader(h string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(h), "_"), "_")
}

// AutoMap assigns each header at most one target column and each column
// at most one header, first header wins. Matching tries, in order, the
// exact column name, a known alias, then substring containment in either
// direction. Unmatched headers are left out.
func AutoMap(headers []string) Mapping {
	m := make(Mapping)
	used := make(map[string]bool)

	for _, h := range headers {
		if _, seen := m[h]; seen {
			continue
		}
		target := matchColumn(NormalizeHeader(h), used)
		if target == "" {
			continue
		}
		m[h] = target
		used[target] = true
	}
	return m
}

func matchColumn(norm string, used map[string]bool) string {
	if norm == "" {
		return ""
	}
	if _, ok := columnIndex[norm]; ok && !used[norm] {
		return norm
	}
	if target, ok := aliases[norm]; ok && !used[target] {
		return target
	}
	for _, c := range columns {
		if used[c.name] {
			continue
		}
		if strings.Contains(c.name, norm) || strings.Contains(norm, c.name) {
			return c.name
		}
	}
	return ""
}

// Validate checks that every target is an importable column and that no
// column is targeted twice.
func (m Mapping) Validate() error {
	targets := make(map[string]string, len(m))
	for source, target := range m {
		if _, ok := columnIndex[target]; !ok {
			return fmt.Errorf("%w: %q (from %q)", ErrUnknownColumn, target, source)
		}
		if prev, dup := targets[target]; dup {
			return fmt.Errorf("importer: column %q mapped from both %q and %q", target, prev, source)
		}
		targets[target] = source
	}
	return nil
}
