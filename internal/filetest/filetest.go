// Package filetest is a golden-file test harness for whole bvm programs:
// it runs every ".bvm" source file in a testdata directory to completion
// and diffs the resulting token stream and print buffer against committed
// golden files, adapted from the teacher's diff-based golden file harness.
package filetest

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/diff"

	"bvm/lang/compiler"
	"bvm/lang/machine"
)

var testUpdateAllTests = flag.Bool("test.update-all-tests", false, "If set, sets all test.update-*-tests.")

// SourceFiles returns the list of source files in dir with the given
// extension (e.g. ".bvm").
func SourceFiles(t *testing.T, dir, ext string) []os.FileInfo {
	t.Helper()
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}

	dents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}

	res := make([]os.FileInfo, 0, len(dents))
	for _, dent := range dents {
		if !dent.Type().IsRegular() {
			continue
		}
		if ext != "" && filepath.Ext(dent.Name()) != ext {
			continue
		}
		fi, err := dent.Info()
		if err != nil {
			t.Fatal(err)
		}
		res = append(res, fi)
	}
	return res
}

// Outcome is the observable result of running one program to completion.
type Outcome struct {
	Tokens string
	Print  string
}

// Run compiles and runs the program at path to a fixed point (or the
// iteration cap) and renders its final token stream and print buffer.
func Run(t *testing.T, path string) Outcome {
	t.Helper()
	src, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	toks, err := compiler.Compile(string(src))
	if err != nil {
		t.Fatal(err)
	}
	cfg := machine.DefaultConfig()
	cfg.PrintBufferEnabled = true
	m := machine.New(toks, cfg)
	if err := m.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	var b strings.Builder
	for i, tok := range m.Tokens() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok.String())
	}
	return Outcome{Tokens: b.String(), Print: m.PrintBuffer.String()}
}

// DiffTokens validates a program's final token stream against its golden
// file (".tokens.want" in resultDir), updating it when updateFlag is set.
func DiffTokens(t *testing.T, fi os.FileInfo, outcome Outcome, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "tokens", ".tokens.want", outcome.Tokens, resultDir, updateFlag)
}

// DiffPrintBuffer validates a program's print buffer against its golden
// file (".print.want" in resultDir), updating it when updateFlag is set.
func DiffPrintBuffer(t *testing.T, fi os.FileInfo, outcome Outcome, resultDir string, updateFlag *bool) {
	t.Helper()
	DiffCustom(t, fi, "print buffer", ".print.want", outcome.Print, resultDir, updateFlag)
}

// DiffCustom is the general version of DiffTokens/DiffPrintBuffer: provide
// a label for error logs and the golden file's extension (including the
// leading dot).
func DiffCustom(t *testing.T, fi os.FileInfo, label, ext, output, resultDir string, updateFlag *bool) {
	t.Helper()
	wantFile := filepath.Join(resultDir, fi.Name()+ext)
	diffOrUpdate(t, label, wantFile, output, updateFlag)
}

func diffOrUpdate(t *testing.T, label, goldFile, output string, updateFlag *bool) {
	if *updateFlag || *testUpdateAllTests {
		if err := os.WriteFile(goldFile, []byte(output), 0600); err != nil {
			t.Fatal(err)
		}
		return
	}

	wantb, err := os.ReadFile(goldFile)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	want := string(wantb)
	if testing.Verbose() {
		t.Logf("got %s:\n%s\n", label, output)
	}
	if patch := diff.Diff(want, output); patch != "" {
		if testing.Verbose() {
			t.Logf("want %s:\n%s\n", label, want)
		}
		t.Errorf("diff %s:\n%s\n", label, patch)
	}
}
