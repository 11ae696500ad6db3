// Package nbbo turns raw exchange quote files into per-millisecond NBBO
// tick partitions: parsing, session/venue/condition filtering, per-ms
// best-bid/best-ask reduction, and event- or clock-grid emission with
// bounded forward fill.
package nbbo

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// MakeCompressedReader returns an io.Reader for the given filename, plus a
// closing function to defer. If the filename ends in ".gz" or useGzip is
// true, the reader gunzips the input.
func MakeCompressedReader(filename string, useGzip bool) (io.Reader, func(), error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, err
	}

	if useGzip || strings.HasSuffix(filename, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		closer := func() {
			gz.Close()
			f.Close()
		}
		return gz, closer, nil
	}

	return f, func() { f.Close() }, nil
}
