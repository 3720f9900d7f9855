package speech

import "net/http"

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
	secCHUA   = `"Google Chrome";v="123", "Not:A-Brand";v="8", "Chromium";v="123"`

	acceptEncoding = "gzip, deflate, br, zstd"
)

// landingHeaders is what Chrome sends when a user types the site into the
// address bar of a fresh incognito window.
func landingHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	h.Set("Accept-Encoding", acceptEncoding)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("DNT", "1")
	h.Set("Pragma", "no-cache")
	h.Set("Sec-CH-UA", secCHUA)
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("User-Agent", userAgent)
	return h
}

// xhrHeaders is what the page's own script sends to the generate endpoint.
func xhrHeaders(origin string) http.Header {
	h := http.Header{}
	h.Set("Accept", "*/*")
	h.Set("Accept-Encoding", acceptEncoding)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Cache-Control", "no-cache")
	h.Set("DNT", "1")
	h.Set("Origin", origin)
	h.Set("Pragma", "no-cache")
	h.Set("Referer", origin+"/")
	h.Set("Sec-CH-UA", secCHUA)
	h.Set("Sec-CH-UA-Mobile", "?0")
	h.Set("Sec-CH-UA-Platform", `"Windows"`)
	h.Set("Sec-Fetch-Dest", "empty")
	h.Set("Sec-Fetch-Mode", "cors")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", userAgent)
	h.Set("X-Requested-With", "XMLHttpRequest")
	return h
}
