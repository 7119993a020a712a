// run - extract an ML feature table from a directory tree of darshan traces.
//
// Usage:
//
//  aiio run [options] input-dir output-csv sample-csv [scratch-dir]
//
// Arguments:
//
//  input-dir
//     Root of the tree that is searched, recursively, for trace files ending
//     in ".darshan".
//
//  output-csv
//     The feature table to produce.  The first row is the schema, then one
//     row per successfully parsed trace, appended as traces are processed.
//
//  sample-csv
//     A reference training file; its header row is the output schema.
//
//  scratch-dir
//     Where the intermediate darshan-parser reports are materialized.  If
//     absent, a directory is created under the system temp directory.  The
//     scratch directory is removed at the end of the run.
//
// Options:
//
//  -parser filename
//     The darshan-parser executable to run, default "darshan-parser".
//
//  -db uri
//     Also insert every feature row into the Postgres database at `uri`.
//
//  -kafka broker
//     Also produce every feature row as a JSON record to this Kafka broker.
//
//  -topic name
//     Kafka topic for -kafka, default "aiio.features".
//
//  -top n
//     How many of the most-often-missing columns to list in the end-of-run
//     summary, default 20.
//
//  -v
//     Print per-file progress and missing-counter diagnostics.
//
// The run section of $HOME/.aiio can provide defaults for -parser, -db,
// -kafka, -topic and the scratch directory.
//
// A trace whose totals report cannot be produced is skipped with a diagnostic;
// the run continues.  Missing perf or lustre data for a trace only means that
// the affected columns default to zero for that trace.  Only bad or missing
// arguments (and I/O trouble with the schema or the sinks) fail the run.

package run

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/BanisharifM/aiio/config"
	"github.com/BanisharifM/aiio/counters"
	"github.com/BanisharifM/aiio/darshan"
	"github.com/BanisharifM/aiio/features"
	"github.com/BanisharifM/aiio/filesys"
	"github.com/BanisharifM/aiio/options"
	"github.com/BanisharifM/aiio/sink"
	"github.com/BanisharifM/aiio/status"
)

func Run(arg0 string, args []string) (err error) {
	fs := flag.NewFlagSet(arg0+" run", flag.ExitOnError)
	parser := fs.String("parser", "", "The darshan-parser `executable` to run")
	database := fs.String("db", "", "Also insert rows into the Postgres database at `uri`")
	kafkaBroker := fs.String("kafka", "", "Also produce rows to this Kafka `broker`")
	kafkaTopic := fs.String("topic", "", "Kafka topic `name` for -kafka")
	topMissing := fs.Int("top", 20, "List the `n` most-often-missing columns in the summary")
	verbose := fs.Bool("v", false, "Verbose diagnostics")
	err = fs.Parse(args)
	if err != nil {
		return err
	}
	if *verbose {
		status.Default().LowerLevelTo(status.LogLevelInfo)
	}

	rest := fs.Args()
	if len(rest) < 3 {
		return errors.New("Required arguments: input-dir output-csv sample-csv")
	}
	inputDir, err := options.RequireDirectory(rest[0], "input-dir")
	if err != nil {
		return err
	}
	outputCSV, err := options.RequireCleanPath(rest[1], "output-csv")
	if err != nil {
		return err
	}
	sampleCSV, err := options.RequireCleanPath(rest[2], "sample-csv")
	if err != nil {
		return err
	}
	scratchDir := ""
	if len(rest) >= 4 {
		scratchDir = rest[3]
	}

	config.ApplyDefault(parser, config.RunParser)
	config.ApplyDefault(&scratchDir, config.RunScratchDir)
	config.ApplyDefault(database, config.RunDatabase)
	config.ApplyDefault(kafkaBroker, config.RunKafkaBroker)
	config.ApplyDefault(kafkaTopic, config.RunKafkaTopic)
	if *parser == "" {
		*parser = darshan.DefaultParser
	}

	schema, err := features.ReadSchema(sampleCSV)
	if err != nil {
		return err
	}

	traceFiles, err := filesys.EnumerateFilesBySuffix(inputDir, darshan.TraceSuffix)
	if err != nil {
		return err
	}
	if len(traceFiles) == 0 {
		// No output table is created in this case.
		fmt.Printf("No %s files found in %s\n", darshan.TraceSuffix, inputDir)
		return nil
	}
	fmt.Printf("Found %d darshan files to process\n", len(traceFiles))

	scratchDir, err = makeScratchDir(scratchDir)
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratchDir)

	outputs, err := openSinks(outputCSV, *database, *kafkaBroker, *kafkaTopic)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := outputs.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	err = processCorpus(outputs, schema, traceFiles, *parser, scratchDir, *topMissing)
	return err
}

func makeScratchDir(scratchDir string) (string, error) {
	if scratchDir == "" {
		return os.MkdirTemp("", "aiio")
	}
	scratchDir, err := options.RequireCleanPath(scratchDir, "scratch-dir")
	if err != nil {
		return "", err
	}
	return scratchDir, os.MkdirAll(scratchDir, 0700)
}

func openSinks(outputCSV, database, kafkaBroker, kafkaTopic string) (sink.RowSink, error) {
	sinks := make([]sink.RowSink, 0, 3)
	csvSink, err := sink.NewCSVSink(outputCSV)
	if err != nil {
		return nil, err
	}
	sinks = append(sinks, csvSink)
	if database != "" {
		pgSink, err := sink.NewPostgresSink(database)
		if err != nil {
			sink.Multi(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, pgSink)
	}
	if kafkaBroker != "" {
		kSink, err := sink.NewKafkaSink(kafkaBroker, kafkaTopic)
		if err != nil {
			sink.Multi(sinks...).Close()
			return nil, err
		}
		sinks = append(sinks, kSink)
	}
	return sink.Multi(sinks...), nil
}

// Process every trace in discovery order: parse the three reports, build the
// counter set, build the row, append it to the sinks.  A trace whose totals
// report fails is skipped without touching the tally.  The missing-column
// tally accumulates across all traces and feeds the end-of-run summary.

func processCorpus(
	outputs sink.RowSink,
	schema []string,
	traceFiles []string,
	parser string,
	scratchDir string,
	topMissing int,
) error {
	err := outputs.WriteHeader(schema)
	if err != nil {
		return err
	}

	tally := make(features.MissingTally)
	processed := 0
	for i, traceFile := range traceFiles {
		status.Infof("Processing %d/%d: %s", i+1, len(traceFiles), path.Base(traceFile))

		reports, err := darshan.ParseTrace(parser, traceFile, scratchDir)
		if err != nil {
			status.Warningf("Skipping %s: %v", traceFile, err)
			continue
		}

		cs := counters.NewCounterSet()
		cs.ParseTotalReport(reports.Total)
		cs.ParsePerfReport(reports.Perf)
		cs.ParseLustreReport(reports.Lustre)

		row, found, missing, tagMissing := features.BuildRow(schema, cs)
		err = outputs.WriteRow(traceFile, row)
		if err != nil {
			return err
		}
		tally.Count(missing)
		processed++

		logRowDiagnostics(found, missing, tagMissing)
	}

	printSummary(tally, len(traceFiles), processed, topMissing)
	return nil
}

func logRowDiagnostics(found, missing []string, tagMissing bool) {
	if tagMissing {
		status.Info("  Missing POSIX_PERF_MIBS (for tag), tag set to 0")
	}
	if len(missing) > 0 {
		status.Infof("  Missing %d counters (set to 0):", len(missing))
		show := missing
		if len(show) > 10 {
			show = show[:10]
		}
		for _, column := range show {
			status.Infof("    - %s", column)
		}
		if len(missing) > 10 {
			status.Infof("    ... and %d more", len(missing)-10)
		}
	}
	status.Infof("  Found %d counters successfully", len(found))
}

func printSummary(tally features.MissingTally, discovered, processed, topMissing int) {
	fmt.Printf("Processed %d/%d files, skipped %d\n",
		processed, discovered, discovered-processed)
	if len(tally) == 0 {
		return
	}
	fmt.Printf("Global missing counter summary (files missing each counter):\n")
	counts := tally.Sorted()
	if len(counts) > topMissing {
		counts = counts[:topMissing]
	}
	for _, c := range counts {
		fmt.Printf("    %s: missing in %d/%d files\n", c.Column, c.Count, discovered)
	}
}
