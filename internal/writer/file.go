package writer

import (
	"fmt"
	"io"
	"os"
)

// openFile opens path for ModeTruncate or ModeAppend, creating it if
// necessary (§4.3.5's "tee > \"file\"" destinations).
func openFile(path string, mode Mode) (io.WriteCloser, error) {
	switch mode {
	case ModeTruncate:
		return os.OpenFile(path, os.O_TRUNC|os.O_CREATE|os.O_WRONLY, 0644)
	case ModeAppend:
		return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	default:
		return nil, fmt.Errorf("unsupported file sink mode %d for %q", mode, path)
	}
}
