// Output sinks for the feature-row stream.
//
// The driver writes the header once and then appends rows one at a time as
// traces are processed, so partial output survives an aborted run.  The CSV
// sink is the primary output table; the postgres and kafka sinks are optional
// additional destinations for feature-store and streaming consumers.

package sink

import (
	"encoding/csv"
	"os"
	"strconv"
)

type RowSink interface {
	// Write the schema.  Called once, before any row.
	WriteHeader(schema []string) error

	// Append the feature row for one trace file.
	WriteRow(trace string, row []float64) error

	// Flush and release the sink.  Must be called on all exit paths.
	Close() error
}

type csvSink struct {
	file *os.File
	wr   *csv.Writer
}

func NewCSVSink(filename string) (RowSink, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, err
	}
	return &csvSink{file: file, wr: csv.NewWriter(file)}, nil
}

func (s *csvSink) WriteHeader(schema []string) error {
	if err := s.wr.Write(schema); err != nil {
		return err
	}
	s.wr.Flush()
	return s.wr.Error()
}

func (s *csvSink) WriteRow(_ string, row []float64) error {
	record := make([]string, len(row))
	for i, v := range row {
		record[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	if err := s.wr.Write(record); err != nil {
		return err
	}
	// Flush per row: the output is streamed, not buffered-then-written.
	s.wr.Flush()
	return s.wr.Error()
}

func (s *csvSink) Close() error {
	s.wr.Flush()
	err := s.wr.Error()
	if closeErr := s.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Multi fans every call out to all the given sinks, failing on the first
// error.

func Multi(sinks ...RowSink) RowSink {
	return multiSink(sinks)
}

type multiSink []RowSink

func (m multiSink) WriteHeader(schema []string) error {
	for _, s := range m {
		if err := s.WriteHeader(schema); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) WriteRow(trace string, row []float64) error {
	for _, s := range m {
		if err := s.WriteRow(trace, row); err != nil {
			return err
		}
	}
	return nil
}

func (m multiSink) Close() error {
	var err error
	for _, s := range m {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
