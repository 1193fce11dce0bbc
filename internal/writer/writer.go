// Package writer implements the output sinks behind tee/print/printn/dump
// (spec.md §4.3.5, §5): files, pipes, and stdout/stderr, opened lazily and
// reused. Grounded on the teacher's util.Writer/ListenWrite
// (util/io.go), which buffers per-goroutine output and funnels it through a
// single channel-fed writer goroutine; adapted here from assembler-line
// buffering to record/line sinks, and from a process-global singleton to a
// per-invocation Sinks value, since the CST is invoked once per record
// rather than once per process.
package writer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/ichobits/miller/internal/mlhmmv"
)

// Mode selects how a tee/emit destination string is interpreted (§4.3.5:
// "append, piped, or stdout").
type Mode int

const (
	ModeTruncate Mode = iota
	ModeAppend
	ModePipe
	ModeStdout
)

// sink wraps one opened-and-reused destination writer.
type sink struct {
	w     *bufio.Writer
	close func() error
}

// Sinks is the per-invocation multi-writer: the sole mutator of every output
// destination a script's tee/print/dump statements reach (§5, "the writer is
// the sole mutator").
type Sinks struct {
	mu         sync.Mutex
	opens      map[string]*sink
	stdoutSink *bufio.Writer
	Stdout     io.Writer
	Stderr     io.Writer
	Flush      bool // flush after every write; internal/cst does not copy Options.FlushEveryRecord into it
	opener     func(path string, mode Mode) (io.WriteCloser, error)
}

// NewSinks returns a Sinks writing plain files via os.OpenFile and piped
// destinations via os/exec, with stdout/stderr as given.
func NewSinks(stdout, stderr io.Writer) *Sinks {
	return &Sinks{
		opens:      make(map[string]*sink),
		stdoutSink: bufio.NewWriter(stdout),
		Stdout:     stdout,
		Stderr:     stderr,
		opener:     defaultOpener,
	}
}

// WriteLine appends line (without a trailing newline; one is added) to the
// destination named by path under mode. A blank path with ModeStdout writes
// to Stdout. Any I/O error is returned to the caller; WriteLine does not
// stop the script itself, and the tee/print statements in internal/cst
// ignore the returned error.
func (s *Sinks) WriteLine(path string, mode Mode, line string) error {
	w, err := s.get(path, mode)
	if err != nil {
		return err
	}
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	if _, err := w.WriteString("\n"); err != nil {
		return err
	}
	if s.Flush {
		return w.Flush()
	}
	return nil
}

// WriteRaw writes line verbatim, with no trailing newline added, to the
// destination named by path under mode (§4.3.5's printn, which must not
// append the newline WriteLine always adds).
func (s *Sinks) WriteRaw(path string, mode Mode, line string) error {
	w, err := s.get(path, mode)
	if err != nil {
		return err
	}
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	if s.Flush {
		return w.Flush()
	}
	return nil
}

// DumpJSON serializes root (the oosvar store, per §4.3.5's dump statement)
// as JSON and writes it to Stdout.
func (s *Sinks) DumpJSON(root *mlhmmv.Node) error {
	v := toJSONValue(root)
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.Stdout, string(b))
	return err
}

func toJSONValue(n *mlhmmv.Node) interface{} {
	if n == nil {
		return nil
	}
	if n.IsTerminal() {
		return n.LeafValue().String()
	}
	keys, children := n.Entries()
	out := make(map[string]interface{}, len(keys))
	ordered := make([]string, 0, len(keys))
	for i, k := range keys {
		ks := k.String()
		out[ks] = toJSONValue(children[i])
		ordered = append(ordered, ks)
	}
	return orderedMap{keys: ordered, m: out}
}

// orderedMap preserves mlhmmv's insertion order through json.Marshal, since
// plain map[string]interface{} would re-sort keys alphabetically.
type orderedMap struct {
	keys []string
	m    map[string]interface{}
}

func (o orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range o.keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		vb, err := json.Marshal(o.m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

func (s *Sinks) get(path string, mode Mode) (*bufio.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == ModeStdout || path == "" {
		return s.stdoutSink, nil
	}
	key := fmt.Sprintf("%d:%s", mode, path)
	if sk, ok := s.opens[key]; ok {
		return sk.w, nil
	}
	wc, err := s.opener(path, mode)
	if err != nil {
		return nil, err
	}
	sk := &sink{w: bufio.NewWriter(wc), close: wc.Close}
	s.opens[key] = sk
	return sk.w, nil
}

// Close flushes and closes every opened sink, called once at end-of-stream
// on graceful shutdown paths only (§5).
func (s *Sinks) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var first error
	if err := s.stdoutSink.Flush(); err != nil && first == nil {
		first = err
	}
	for _, sk := range s.opens {
		if err := sk.w.Flush(); err != nil && first == nil {
			first = err
		}
		if err := sk.close(); err != nil && first == nil {
			first = err
		}
	}
	s.opens = make(map[string]*sink)
	return first
}

func defaultOpener(path string, mode Mode) (io.WriteCloser, error) {
	if mode == ModePipe {
		cmd := exec.Command("/bin/sh", "-c", path)
		pipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		return &procCloser{WriteCloser: pipe, cmd: cmd}, nil
	}
	return openFile(path, mode)
}

type procCloser struct {
	io.WriteCloser
	cmd *exec.Cmd
}

func (p *procCloser) Close() error {
	if err := p.WriteCloser.Close(); err != nil {
		return err
	}
	return p.cmd.Wait()
}
