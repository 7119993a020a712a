// Collaborator interface to the external darshan-parser tool.
//
// For each trace file we invoke the parser three times: `--total` for the
// aggregated counters, `--perf` for the per-module performance summary, and
// without options for the full record dump, from which only the LUSTRE layout
// records are kept (fields 4 and 5: counter name and value).  Each report is
// materialized under the run's scratch directory before being parsed, so a
// failed run leaves the reports around for inspection until the driver
// removes the directory.
//
// A parser failure on the total report is the definitive failure signal for
// the trace file.  Failures on the other two reports are tolerated: the
// affected sections are simply empty and the trace yields fewer counters.

package darshan

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/BanisharifM/aiio/filesys"
	"github.com/BanisharifM/aiio/process"
	"github.com/BanisharifM/aiio/status"
)

// Name of the parser executable, overridable per run.
const DefaultParser = "darshan-parser"

// Suffix of the trace files the parser accepts.
const TraceSuffix = ".darshan"

// Reports holds the lines of the three reports for one trace file.
type Reports struct {
	Total  []string
	Perf   []string
	Lustre []string
}

// ParseTrace produces the three reports for traceFile.  The error return is
// non-nil exactly when the total report could not be produced; the trace must
// then be skipped by the caller.

func ParseTrace(parser, traceFile, scratchDir string) (*Reports, error) {
	total, err := materialize(parser, []string{"--total", traceFile},
		path.Join(scratchDir, "parsed_total.txt"), nil)
	if err != nil {
		return nil, fmt.Errorf("Can't parse totals for %s\n%w", traceFile, err)
	}

	// Nonfatal: a missing perf or lustre section means fewer counters, it
	// must not abort the file.
	perf, err := materialize(parser, []string{"--perf", traceFile},
		path.Join(scratchDir, "parsed_perf.txt"), nil)
	if err != nil {
		status.Infof("No perf report for %s: %v", traceFile, err)
		perf = []string{}
	}

	lustre, err := materialize(parser, []string{traceFile},
		path.Join(scratchDir, "parsed_lustre.txt"), extractLustre)
	if err != nil {
		status.Infof("No lustre report for %s: %v", traceFile, err)
		lustre = []string{}
	}

	return &Reports{Total: total, Perf: perf, Lustre: lustre}, nil
}

// Run the parser, optionally filter its output, write the result to
// reportFile, and return it as lines.

func materialize(
	parser string,
	arguments []string,
	reportFile string,
	filter func(string) string,
) ([]string, error) {
	stdout, _, err := process.RunSubprocess(parser, arguments)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		stdout = filter(stdout)
	}
	err = os.WriteFile(reportFile, []byte(stdout), 0600)
	if err != nil {
		return nil, err
	}
	return filesys.FileLines(reportFile)
}

// Keep only the LUSTRE records and cut them down to (counter, value), the
// fourth and fifth tab-separated fields of the full record dump.

func extractLustre(report string) string {
	var b strings.Builder
	for _, line := range strings.Split(report, "\n") {
		if !strings.HasPrefix(line, "LUSTRE") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			continue
		}
		b.WriteString(fields[3])
		b.WriteByte('\t')
		b.WriteString(fields[4])
		b.WriteByte('\n')
	}
	return b.String()
}
