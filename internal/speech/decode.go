package speech

import (
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// maxBodySize caps how much of a provider response is read into memory.
const maxBodySize = 16 << 20

// readBody reads and decodes a response body. Because the browser header set
// asks for compressed content explicitly, net/http does not decode it for us.
func readBody(resp *http.Response) ([]byte, error) {
	r, closeFn, err := decodingReader(resp.Body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, err
	}
	defer closeFn()

	body, err := io.ReadAll(io.LimitReader(r, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	return body, nil
}

func decodingReader(body io.Reader, encoding string) (io.Reader, func(), error) {
	noop := func() {}
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return body, noop, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, noop, fmt.Errorf("gzip body: %w", err)
		}
		return zr, func() { zr.Close() }, nil
	case "deflate":
		fr := flate.NewReader(body)
		return fr, func() { fr.Close() }, nil
	case "br":
		return brotli.NewReader(body), noop, nil
	case "zstd":
		dec, err := zstd.NewReader(body)
		if err != nil {
			return nil, noop, fmt.Errorf("zstd body: %w", err)
		}
		return dec, dec.Close, nil
	default:
		return nil, noop, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
