// File system helpers: trace discovery, report reading, test-tree population.

package filesys

import (
	"bufio"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Recursively enumerate the files under dataPath whose name ends with the
// given suffix, eg ".darshan".  No other filter is applied.  The returned
// paths include dataPath as a prefix.  The order is the traversal order of
// filepath.WalkDir (lexical within each directory); callers must not depend
// on any particular cross-run ordering beyond what WalkDir guarantees.

func EnumerateFilesBySuffix(dataPath, suffix string) ([]string, error) {
	result := []string{}
	err := filepath.WalkDir(dataPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), suffix) {
			result = append(result, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func FileLines(filename string) (lines []string, err error) {
	lines = make([]string, 0)
	f, err := os.Open(filename)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	err = scanner.Err()
	return
}

type TestFile struct {
	Dir  string
	Name string
	Data []byte
}

// Create a temp directory, and subdirectories of that and files in those
// directories as directed, and return the name of the temp directory.  The
// caller should remove the directory when it is no longer useful, normally by
// way of `defer`.  If a nil error is returned there will be no directory.

func PopulateTestData(tag string, data ...TestFile) (string, error) {
	tempdir, err := os.MkdirTemp("", tag+"_test")
	if err != nil {
		return "", err
	}
	for _, d := range data {
		err = os.MkdirAll(path.Join(tempdir, d.Dir), 0700)
		if err != nil {
			os.RemoveAll(tempdir)
			return "", err
		}
		err = os.WriteFile(path.Join(tempdir, d.Dir, d.Name), d.Data, 0600)
		if err != nil {
			os.RemoveAll(tempdir)
			return "", err
		}
	}
	return tempdir, nil
}
