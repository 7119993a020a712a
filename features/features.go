// Turning one trace's counters into one fixed-schema numeric feature row.
//
// The output schema is dictated by a reference training file: its CSV header
// is the ordered list of feature columns, and every produced row has exactly
// that many cells in that order.  Counter magnitudes span many decades (byte
// counts vs operation counts vs MiB/s), so every cell is compressed with
// log10(x+1) before it goes into the row.

package features

import (
	"bufio"
	"cmp"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"

	"github.com/BanisharifM/aiio/counters"
)

// The reserved column holding the ML training target, derived from the POSIX
// aggregate performance counter.
const TagColumn = "tag"

const tagCounter = "POSIX_PERF_MIBS"

// Normalize maps a raw counter value to log10(value+1).  A value that does
// not parse as a float normalizes to 0.0; that is the defined fallback for
// absent and malformed data, not an error, and is indistinguishable from a
// true zero downstream.

func Normalize(value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0.0
	}
	// ParseFloat accepts "NaN" and "Inf", and log10 of a negative argument is
	// NaN; the contract is a finite number, so all of those fall back too.
	n := math.Log10(v + 1)
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0.0
	}
	return n
}

// ReadSchema returns the ordered column names from the first record of the
// reference feature file.  The schema is read once per run and treated as
// read-only thereafter.

func ReadSchema(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rdr := csv.NewReader(bufio.NewReader(f))
	header, err := rdr.Read()
	if err != nil {
		return nil, fmt.Errorf("No header record in %s: %w", filename, err)
	}
	return header, nil
}

// BuildRow constructs the feature row for one trace, one cell per schema
// column in schema order:
//
//  - the "tag" column always gets a value, the normalized POSIX aggregate
//    performance, defaulting to Normalize("0") when that counter is absent
//  - any other column resolves through the CounterSet's lookup strategies and
//    is normalized on success
//  - an unresolved column gets the literal 0.0 and is recorded in `missing`
//
// The row is never rejected: len(row) == len(schema) regardless of how many
// columns went unresolved.  `found` and `missing` name the resolved and
// unresolved columns for diagnostics; tagMissing reports separately that the
// tag's backing counter was absent (the tag cell itself is still filled).

func BuildRow(schema []string, cs counters.CounterSet) (row []float64, found, missing []string, tagMissing bool) {
	row = make([]float64, 0, len(schema))
	for _, column := range schema {
		if column == TagColumn {
			value, present := cs[tagCounter]
			if !present {
				value = "0"
				tagMissing = true
			} else {
				found = append(found, column)
			}
			row = append(row, Normalize(value))
			continue
		}
		if value, ok := cs.Resolve(column); ok {
			found = append(found, column)
			row = append(row, Normalize(value))
		} else {
			missing = append(missing, column)
			row = append(row, 0.0)
		}
	}
	return
}

// MissingTally counts, per schema column, the number of files in which the
// column could not be resolved.  It lives for one corpus run and is updated
// by the single driver goroutine only.

type MissingTally map[string]int

func (mt MissingTally) Count(missing []string) {
	for _, column := range missing {
		mt[column]++
	}
}

// Sorted returns the tally as (column, count) pairs, descending by count.

type MissingCount struct {
	Column string
	Count  int
}

func (mt MissingTally) Sorted() []MissingCount {
	counts := make([]MissingCount, 0, len(mt))
	for column, count := range mt {
		counts = append(counts, MissingCount{column, count})
	}
	// Ties broken by name so that reports are stable.
	slices.SortFunc(counts, func(a, b MissingCount) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Column, b.Column)
	})
	return counts
}
