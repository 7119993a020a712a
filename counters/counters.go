// Extraction of named counters from darshan-parser report text.
//
// A CounterSet holds the counters of one trace file as raw strings, keyed by
// counter name.  It is populated from up to three reports:
//
//  - the "total" report (darshan-parser --total), where counter lines are
//    prefixed "total" and one comment line carries the process count
//  - the "perf" report (darshan-parser --perf), where per-module sections are
//    introduced by comment headers and each section has an aggregate
//    performance line
//  - the "lustre" extract, tab-separated (FIELD, VALUE) pairs for the Lustre
//    striping parameters, pre-filtered from the default report
//
// Values stay strings until row-build time; only the Lustre striping samples
// are reduced numerically here, since many per-component records fold into a
// single representative counter.

package counters

import (
	"strconv"
	"strings"
)

type CounterSet map[string]string

func NewCounterSet() CounterSet {
	return make(CounterSet)
}

// ParseTotalReport extracts the "total_*" counter lines and the nprocs
// metadata line.  POSIX counters lose their "total_" prefix so that they are
// stored under the bare counter name; all other totals keep the prefix.  A
// candidate line without a colon is ignored.

func (cs CounterSet) ParseTotalReport(lines []string) {
	for _, line := range lines {
		if strings.HasPrefix(line, "total") {
			parts := strings.SplitN(strings.TrimSpace(line), ":", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if strings.HasPrefix(key, "total_POSIX_") {
				key = strings.TrimPrefix(key, "total_")
			}
			cs[key] = value
		} else if strings.HasPrefix(line, "# nprocs:") {
			if _, found := cs["nprocs"]; !found {
				parts := strings.SplitN(line, ":", 2)
				cs["nprocs"] = strings.TrimSpace(parts[1])
			}
		}
	}
}

// The perf report interleaves sections for several instrumentation modules;
// only the POSIX section's aggregate matters to us.  Track the current module
// across lines with an explicit state variable, starting at "no module": a
// header must be seen before any aggregate line is believed.

type perfModule int

const (
	moduleNone perfModule = iota
	modulePOSIX
	moduleMPIIO
	moduleSTDIO
)

// ParsePerfReport stores the POSIX section's agg_perf_by_slowest value (MiB/s)
// under POSIX_PERF_MIBS.  Aggregates in non-POSIX sections are skipped, as is
// an aggregate line that precedes any module header.  If the report has no
// POSIX aggregate, the key is simply absent.

func (cs CounterSet) ParsePerfReport(lines []string) {
	module := moduleNone
	for _, line := range lines {
		switch {
		case strings.Contains(line, "# POSIX module data"):
			module = modulePOSIX
		case strings.Contains(line, "# MPI-IO module data"):
			module = moduleMPIIO
		case strings.Contains(line, "# STDIO module data"):
			module = moduleSTDIO
		case strings.Contains(line, "agg_perf_by_slowest") && module == modulePOSIX:
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}
			// The value may carry a trailing unit comment, eg "# MiB/s".
			value := strings.TrimSpace(strings.SplitN(parts[1], "#", 2)[0])
			cs["POSIX_PERF_MIBS"] = value
		}
	}
}

// ParseLustreReport collects the per-component striping records and reduces
// each parameter to the arithmetic mean of its samples, truncated to an
// integer.  A parameter with no samples gets no key.  Records with a
// non-integer value field are dropped.

func (cs CounterSet) ParseLustreReport(lines []string) {
	var widths, sizes []int
	for _, line := range lines {
		fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
		if len(fields) < 2 {
			continue
		}
		value, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			continue
		}
		switch fields[0] {
		case "LUSTRE_STRIPE_WIDTH":
			widths = append(widths, value)
		case "LUSTRE_STRIPE_SIZE":
			sizes = append(sizes, value)
		}
	}
	if len(widths) > 0 {
		cs["LUSTRE_STRIPE_WIDTH"] = strconv.Itoa(truncatedMean(widths))
	}
	if len(sizes) > 0 {
		cs["LUSTRE_STRIPE_SIZE"] = strconv.Itoa(truncatedMean(sizes))
	}
}

func truncatedMean(xs []int) int {
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return int(float64(sum) / float64(len(xs)))
}

// Counter names in reference schemas do not always match the stored key: some
// schemas name a counter bare where the report kept the "total_" prefix.  The
// resolution strategies are tried in order, first match wins, so an exact key
// always shadows a prefixed one.

var resolution = []func(name string) string{
	func(name string) string { return name },
	func(name string) string { return "total_" + name },
}

// Resolve looks up the value for a schema column name, applying the
// resolution strategies in order.  The second result is false if no strategy
// found a key.

func (cs CounterSet) Resolve(name string) (string, bool) {
	for _, strategy := range resolution {
		if value, found := cs[strategy(name)]; found {
			return value, true
		}
	}
	return "", false
}
