// `aiio` - turn darshan I/O traces into ML-ready feature tables.
//
// Run `aiio help` for help.

package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/BanisharifM/aiio/run"
)

const aiioVersion = "0.1.0"

type command struct {
	help    string
	handler func(arg0 string, args []string) error
}

var commandSummary = "<verb> <option> ... <argument> ..."

var commands = map[string]command{
	"run": command{
		"Extract a feature table from a directory of darshan traces",
		run.Run,
	},
	"version": command{
		"Print the program version",
		version,
	},
}

func main() {
	if len(os.Args) < 2 {
		usage(2)
	}
	if entry, found := commands[os.Args[1]]; found {
		err := entry.handler(os.Args[0], os.Args[2:])
		if err != nil {
			fmt.Fprintf(os.Stderr, "AIIO FAILED\n%v\n\n", err)
			usage(1)
		}
	} else if os.Args[1] == "help" {
		usage(0)
	} else {
		usage(2)
	}
}

func version(_ string, _ []string) error {
	fmt.Printf("aiio version %s\n", aiioVersion)
	return nil
}

func usage(code int) {
	out := os.Stdout
	if code != 0 {
		out = os.Stderr
	}
	fmt.Fprintf(out, "Usage of %s:\n\n  %s %s\n\n", os.Args[0], os.Args[0], commandSummary)
	fmt.Fprintf(out, "where <verb> is one of\n\n")
	entries := make(sort.StringSlice, 0)
	for name, command := range commands {
		entries = append(entries, "  "+name+"\n    "+command.help)
	}
	sort.Sort(entries)
	for _, e := range entries {
		fmt.Fprintln(out, e)
	}
	fmt.Fprintln(out, "\nAll verbs accept -h to print verb-specific help.")
	os.Exit(code)
}
