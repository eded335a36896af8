package encoder

import (
	"bytes"
	"io"
)

// splitLines splits p on '\n'. The terminating newline of each line is
// dropped; a trailing unterminated line is returned as-is.
func splitLines(p []byte) [][]byte {
	if len(p) == 0 {
		return nil
	}
	lines := make([][]byte, 0, bytes.Count(p, []byte{'\n'})+1)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			lines = append(lines, p)
			break
		}
		lines = append(lines, p[:i])
		p = p[i+1:]
	}
	return lines
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func isGzip(compression string) bool {
	return compression == "gzip" || compression == "GZIP"
}
