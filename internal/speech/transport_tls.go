package speech

import (
	"fmt"
	"math"
	"net/http"
	"time"

	fhttp "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"
)

// headerOrder is the order Chrome sends these headers in. Headers not listed
// go after them.
var headerOrder = []string{
	"host",
	"content-length",
	"sec-ch-ua",
	"sec-ch-ua-mobile",
	"sec-ch-ua-platform",
	"upgrade-insecure-requests",
	"x-csrf-token",
	"x-requested-with",
	"user-agent",
	"content-type",
	"accept",
	"origin",
	"sec-fetch-site",
	"sec-fetch-mode",
	"sec-fetch-user",
	"sec-fetch-dest",
	"referer",
	"accept-encoding",
	"accept-language",
	"cookie",
}

// tlsDoer adapts a tls-client HttpClient to Doer.
type tlsDoer struct {
	client tls_client.HttpClient
}

// NewTLSTransport returns a Doer whose TLS and HTTP/2 fingerprint match a
// desktop Chrome, for providers that reject Go's default handshake. It never
// follows redirects and keeps no cookie jar; cookies travel only in the
// explicit Cookie header of each request. timeout is rounded up to whole
// seconds; the request context still applies.
func NewTLSTransport(timeout time.Duration, proxyURL string) (Doer, error) {
	opts := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(timeoutSeconds(timeout)),
		tls_client.WithClientProfile(profiles.Chrome_120),
		tls_client.WithNotFollowRedirects(),
	}
	if proxyURL != "" {
		opts = append(opts, tls_client.WithProxyUrl(proxyURL))
	}
	client, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), opts...)
	if err != nil {
		return nil, fmt.Errorf("creating tls client: %w", err)
	}
	return &tlsDoer{client: client}, nil
}

// timeoutSeconds never returns 0, which tls-client reads as no timeout.
func timeoutSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func (d *tlsDoer) Do(req *http.Request) (*http.Response, error) {
	freq, err := toFHTTP(req)
	if err != nil {
		return nil, err
	}
	fresp, err := d.client.Do(freq)
	if err != nil {
		return nil, err
	}
	return fromFHTTP(fresp, req), nil
}

func toFHTTP(req *http.Request) (*fhttp.Request, error) {
	freq, err := fhttp.NewRequestWithContext(req.Context(), req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, err
	}
	freq.Header = fhttp.Header(req.Header.Clone())
	freq.Header[fhttp.HeaderOrderKey] = headerOrder
	if req.ContentLength > 0 {
		freq.ContentLength = req.ContentLength
	}
	return freq, nil
}

// fromFHTTP passes body and Content-Encoding through untouched: the explicit
// Accept-Encoding disables transparent decompression, so readBody decodes.
func fromFHTTP(fresp *fhttp.Response, req *http.Request) *http.Response {
	return &http.Response{
		Status:        fresp.Status,
		StatusCode:    fresp.StatusCode,
		Proto:         fresp.Proto,
		ProtoMajor:    fresp.ProtoMajor,
		ProtoMinor:    fresp.ProtoMinor,
		Header:        http.Header(fresp.Header),
		Body:          fresp.Body,
		ContentLength: fresp.ContentLength,
		Request:       req,
	}
}
