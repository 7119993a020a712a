package run

import (
	"encoding/csv"
	"math"
	"os"
	"path"
	"strconv"
	"testing"

	"github.com/BanisharifM/aiio/features"
	"github.com/BanisharifM/aiio/filesys"
)

// A stand-in for darshan-parser.  Traces with "bad" in their name fail the
// totals invocation, all others produce fixed reports.

const stubParser = `#!/bin/sh
case "$1" in
--total)
	case "$2" in
	*bad*) exit 1 ;;
	esac
	printf '# nprocs: 8\ntotal_POSIX_OPENS: 99\ntotal_POSIX_BYTES_READ: 1048576\n'
	;;
--perf)
	printf '# MPI-IO module data\nagg_perf_by_slowest: 7.5 # MiB/s\n'
	printf '# POSIX module data\nagg_perf_by_slowest: 512.34 # MiB/s\n'
	;;
*)
	printf 'LUSTRE\t0\t1\tLUSTRE_STRIPE_WIDTH\t4\tf\t/m\tlustre\n'
	printf 'LUSTRE\t0\t1\tLUSTRE_STRIPE_WIDTH\t8\tf\t/m\tlustre\n'
	;;
esac
`

func writeStubParser(t *testing.T, dir string) string {
	t.Helper()
	p := path.Join(dir, "fake-darshan-parser")
	if err := os.WriteFile(p, []byte(stubParser), 0700); err != nil {
		t.Fatalf("Can't write stub parser: %v", err)
	}
	return p
}

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRunEndToEnd(t *testing.T) {
	work := t.TempDir()
	parser := writeStubParser(t, work)

	inputDir, err := filesys.PopulateTestData("run",
		filesys.TestFile{Dir: "2024/01", Name: "a.darshan", Data: []byte("x")},
		filesys.TestFile{Dir: "2024/01", Name: "bad.darshan", Data: []byte("x")},
		filesys.TestFile{Dir: "2024/02", Name: "c.darshan", Data: []byte("x")},
	)
	if err != nil {
		t.Fatalf("PopulateTestData failed: %v", err)
	}
	defer os.RemoveAll(inputDir)

	sampleCSV := path.Join(work, "sample.csv")
	header := "tag,POSIX_BYTES_READ,LUSTRE_STRIPE_WIDTH,NEVER_SEEN,nprocs\n"
	if err := os.WriteFile(sampleCSV, []byte(header+"0,0,0,0,0\n"), 0600); err != nil {
		t.Fatal(err)
	}

	outputCSV := path.Join(work, "out.csv")
	scratchDir := path.Join(work, "scratch")

	err = Run("aiio", []string{
		"-parser", parser, inputDir, outputCSV, sampleCSV, scratchDir,
	})
	if err != nil {
		t.Fatalf("Run returned error %q", err)
	}

	f, err := os.Open(outputCSV)
	if err != nil {
		t.Fatalf("No output table: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// Header plus one row each for a.darshan and c.darshan; bad.darshan was
	// skipped.
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d: %v", len(records), records)
	}
	if records[0][0] != "tag" || len(records[0]) != 5 {
		t.Fatalf("Bad header %v", records[0])
	}
	want := []float64{
		features.Normalize("512.34"),
		features.Normalize("1048576"),
		features.Normalize("6"),
		0.0,
		features.Normalize("8"),
	}
	for _, record := range records[1:] {
		if len(record) != 5 {
			t.Fatalf("Bad row width %v", record)
		}
		for i, cell := range record {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				t.Fatalf("Non-numeric cell %q: %v", cell, err)
			}
			if !almost(v, want[i]) {
				t.Fatalf("Cell %d got %v want %v", i, v, want[i])
			}
		}
	}

	// The scratch directory is removed at the end of the run.
	if _, err := os.Stat(scratchDir); !os.IsNotExist(err) {
		t.Fatalf("Scratch directory not removed: %v", err)
	}
}

func TestRunNoTraces(t *testing.T) {
	work := t.TempDir()
	inputDir := path.Join(work, "empty")
	if err := os.MkdirAll(inputDir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path.Join(inputDir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	sampleCSV := path.Join(work, "sample.csv")
	if err := os.WriteFile(sampleCSV, []byte("tag\n0\n"), 0600); err != nil {
		t.Fatal(err)
	}
	outputCSV := path.Join(work, "out.csv")

	err := Run("aiio", []string{inputDir, outputCSV, sampleCSV})
	if err != nil {
		t.Fatalf("Zero traces must not be an error: %v", err)
	}
	if _, err := os.Stat(outputCSV); !os.IsNotExist(err) {
		t.Fatal("No output table must be created when no traces are found")
	}
}

func TestRunMissingArguments(t *testing.T) {
	if err := Run("aiio", []string{}); err == nil {
		t.Fatal("Missing arguments must be an error")
	}
	if err := Run("aiio", []string{"only", "two"}); err == nil {
		t.Fatal("Missing arguments must be an error")
	}
}
