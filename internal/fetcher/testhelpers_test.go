package fetcher

import (
	"errors"
	"os"
)

var errBoom = errors.New("boom")

// writeTestFile is a helper that writes data to a file path.
func writeTestFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

// failingReader returns an error after reading failAt bytes.
type failingReader struct {
	data    string
	pos     int
	failAt  int
	failErr error
}

func (r *failingReader) Read(p []byte) (int, error) {
	if r.pos >= r.failAt {
		return 0, r.failErr
	}
	end := min(r.failAt, len(r.data))
	n := copy(p, r.data[r.pos:end])
	r.pos += n
	return n, nil
}
