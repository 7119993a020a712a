package features

import (
	"math"
	"os"
	"reflect"
	"testing"

	"github.com/BanisharifM/aiio/counters"
	"github.com/BanisharifM/aiio/filesys"
)

func almost(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestNormalize(t *testing.T) {
	if !almost(Normalize("0"), 0.0) {
		t.Fatal("Normalize(0)")
	}
	if !almost(Normalize("9"), 1.0) {
		t.Fatal("Normalize(9)")
	}
	if !almost(Normalize("1048576"), 6.0206) {
		t.Fatalf("Normalize(1048576) got %v", Normalize("1048576"))
	}
	if !almost(Normalize("512.34"), 2.7104) {
		t.Fatalf("Normalize(512.34) got %v", Normalize("512.34"))
	}
}

func TestNormalizeMonotonic(t *testing.T) {
	samples := []string{"0", "0.5", "1", "17", "1024", "1048576", "123456789"}
	prev := math.Inf(-1)
	for _, s := range samples {
		n := Normalize(s)
		if n <= prev {
			t.Fatalf("Normalize not increasing at %q: %v <= %v", s, n, prev)
		}
		prev = n
	}
}

func TestNormalizeFallback(t *testing.T) {
	for _, s := range []string{"", "n/a", "12x", "--", "NaN", "+Inf", "-5"} {
		if Normalize(s) != 0.0 {
			t.Fatalf("Normalize(%q) must be 0.0", s)
		}
	}
}

func TestBuildRowLengthAndOrder(t *testing.T) {
	schema := []string{"POSIX_OPENS", "tag", "NEVER_SEEN", "nprocs"}
	cs := counters.CounterSet{
		"POSIX_OPENS":     "96",
		"POSIX_PERF_MIBS": "512.34",
		"nprocs":          "512",
	}
	row, found, missing, tagMissing := BuildRow(schema, cs)
	if len(row) != len(schema) {
		t.Fatalf("Row length %d, schema length %d", len(row), len(schema))
	}
	if tagMissing {
		t.Fatal("Tag counter is present")
	}
	if !almost(row[0], Normalize("96")) || !almost(row[1], Normalize("512.34")) ||
		row[2] != 0.0 || !almost(row[3], Normalize("512")) {
		t.Fatalf("Bad row %v", row)
	}
	if !reflect.DeepEqual(found, []string{"POSIX_OPENS", "tag", "nprocs"}) {
		t.Fatalf("Bad found list %v", found)
	}
	if !reflect.DeepEqual(missing, []string{"NEVER_SEEN"}) {
		t.Fatalf("Bad missing list %v", missing)
	}
}

func TestBuildRowTagDefault(t *testing.T) {
	row, _, _, tagMissing := BuildRow([]string{"tag"}, counters.NewCounterSet())
	if !tagMissing {
		t.Fatal("Tag counter is absent, must be flagged")
	}
	if row[0] != 0.0 {
		t.Fatalf("Defaulted tag must be log10(0+1)=0, got %v", row[0])
	}
}

func TestBuildRowPrefixResolution(t *testing.T) {
	cs := counters.CounterSet{
		"total_MPIIO_INDEP_OPENS": "4",
	}
	row, found, missing, _ := BuildRow([]string{"MPIIO_INDEP_OPENS"}, cs)
	if !almost(row[0], Normalize("4")) {
		t.Fatalf("Prefixed counter not resolved: %v", row)
	}
	if len(found) != 1 || len(missing) != 0 {
		t.Fatalf("Bad diagnostics %v %v", found, missing)
	}
}

func TestMissingTally(t *testing.T) {
	mt := make(MissingTally)
	mt.Count([]string{"A", "B"})
	mt.Count([]string{"B"})
	mt.Count([]string{"B", "C"})
	sorted := mt.Sorted()
	want := []MissingCount{{"B", 3}, {"A", 1}, {"C", 1}}
	if !reflect.DeepEqual(sorted, want) {
		t.Fatalf("Sorted tally got %v want %v", sorted, want)
	}
}

func TestReadSchema(t *testing.T) {
	tmp, err := filesys.PopulateTestData("features",
		filesys.TestFile{Dir: ".", Name: "sample.csv",
			Data: []byte("tag,POSIX_OPENS,nprocs\n1.0,2.0,3.0\n")},
	)
	if err != nil {
		t.Fatalf("PopulateTestData failed: %v", err)
	}
	defer os.RemoveAll(tmp)

	schema, err := ReadSchema(tmp + "/sample.csv")
	if err != nil {
		t.Fatalf("ReadSchema returned error %q", err)
	}
	if !reflect.DeepEqual(schema, []string{"tag", "POSIX_OPENS", "nprocs"}) {
		t.Fatalf("Bad schema %v", schema)
	}
}
