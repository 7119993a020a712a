// Per-user run defaults from an ini file.
//
// $HOME/.aiio can carry a `run` section whose fields back up the
// corresponding command line options; an explicit option always wins.
// A missing file is fine, a malformed file is reported and ignored.

package config

import (
	"errors"
	"os"
	"path"

	ini "github.com/lars-t-hansen/ini"

	"github.com/BanisharifM/aiio/status"
)

// MT: Constant after initialization
var (
	p     = ini.NewParser()
	store *ini.Store

	runSection     = p.AddSection("run")
	RunParser      = runSection.AddString("parser")
	RunScratchDir  = runSection.AddString("scratch-dir")
	RunDatabase    = runSection.AddString("database")
	RunKafkaBroker = runSection.AddString("kafka-broker")
	RunKafkaTopic  = runSection.AddString("kafka-topic")
)

func init() {
	home := os.Getenv("HOME")
	if home == "" {
		return
	}
	fn := path.Join(path.Clean(home), ".aiio")
	input, err := os.Open(fn)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			status.Errorf("Error in trying to open %s: %s", fn, err.Error())
		}
		return
	}
	defer input.Close()
	store, err = p.Parse(input)
	if err != nil {
		status.Errorf("Error in trying to parse %s: %s", fn, err.Error())
		return
	}
}

func HasDefault(f *ini.Field) bool {
	return store != nil && f.Present(store)
}

// ApplyDefault fills *sp from the ini field if *sp is empty and the field is
// present, expanding environment variables in the value.

func ApplyDefault(sp *string, f *ini.Field) bool {
	if *sp != "" || store == nil || !f.Present(store) {
		return false
	}
	*sp = os.ExpandEnv(f.StringVal(store))
	return true
}
