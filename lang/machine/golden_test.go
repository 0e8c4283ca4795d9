package machine_test

import (
	"flag"
	"path/filepath"
	"testing"

	"bvm/internal/filetest"
)

var updateGolden = flag.Bool("test.update-golden-tests", false, "update the golden files in testdata/programs")

// TestGoldenPrograms runs every testdata/programs/*.bvm file to completion
// and diffs its final token stream and print buffer against the committed
// golden files, mirroring the teacher's testdata-walking golden-file test
// pattern.
func TestGoldenPrograms(t *testing.T) {
	dir := "testdata/programs"
	for _, fi := range filetest.SourceFiles(t, dir, ".bvm") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			outcome := filetest.Run(t, filepath.Join(dir, fi.Name()))
			filetest.DiffTokens(t, fi, outcome, dir, updateGolden)
			filetest.DiffPrintBuffer(t, fi, outcome, dir, updateGolden)
		})
	}
}
