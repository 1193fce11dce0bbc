package writer

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ichobits/miller/internal/mlhmmv"
	"github.com/ichobits/miller/internal/mlrval"
)

func TestWriteLineToStdout(t *testing.T) {
	var buf bytes.Buffer
	s := NewSinks(&buf, &bytes.Buffer{})
	if err := s.WriteLine("", ModeStdout, "hello"); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := buf.String(); got != "hello\n" {
		t.Errorf("got %q, want %q", got, "hello\n")
	}
}

func TestWriteLineAppendsAcrossCallsToSameFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	s := NewSinks(&bytes.Buffer{}, &bytes.Buffer{})
	if err := s.WriteLine(path, ModeAppend, "line1"); err != nil {
		t.Fatalf("WriteLine 1: %v", err)
	}
	if err := s.WriteLine(path, ModeAppend, "line2"); err != nil {
		t.Fatalf("WriteLine 2: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading sink file: %v", err)
	}
	if got := string(b); got != "line1\nline2\n" {
		t.Errorf("got %q, want %q", got, "line1\nline2\n")
	}
}

func TestWriteLineReusesOneOpenPerDestination(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	s := NewSinks(&bytes.Buffer{}, &bytes.Buffer{})
	s.WriteLine(path, ModeTruncate, "a")
	s.WriteLine(path, ModeTruncate, "b")
	if len(s.opens) != 1 {
		t.Errorf("got %d distinct opened sinks for the same destination, want 1", len(s.opens))
	}
	s.Close()
}

func TestDumpJSONPreservesInsertionOrder(t *testing.T) {
	root := mlhmmv.NewMap()
	root.Put(mlrval.FromString("z"), mlhmmv.Leaf(mlrval.FromInt(1)))
	root.Put(mlrval.FromString("a"), mlhmmv.Leaf(mlrval.FromInt(2)))

	var buf bytes.Buffer
	s := NewSinks(&buf, &bytes.Buffer{})
	if err := s.DumpJSON(root); err != nil {
		t.Fatalf("DumpJSON: %v", err)
	}
	out := buf.String()
	zi := strings.Index(out, `"z"`)
	ai := strings.Index(out, `"a"`)
	if zi < 0 || ai < 0 || zi > ai {
		t.Errorf("got %q, want key \"z\" to appear before \"a\" (insertion order)", out)
	}
}
