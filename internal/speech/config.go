// Package speech obtains Japanese speech audio from speechactors.com by
// replaying the requests a browser makes on the site's open tool page:
// visit the landing page, keep its cookies and CSRF token, post a multipart
// form to the generate endpoint and work out what came back.
//
// The site has no documented API. Every assumption about its responses lives
// in Classify so that format drift only touches one function.
package speech

import "time"

// Deployment defaults.
const (
	DefaultBaseURL        = "https://speechactors.com"
	DefaultGeneratePath   = "/open-tool/generate"
	DefaultLocale         = "ja-JP"
	DefaultVoice          = "ja-JP-NanamiNeural"
	DefaultStyle          = "default"
	DefaultCSRFCookieName = "csrf_cookie_name"
	DefaultAudioThreshold = 1000
	DefaultStageTimeout   = 10 * time.Second
)

// Config holds the provider coordinates and voice parameters.
type Config struct {
	BaseURL        string
	GeneratePath   string
	Locale         string
	Voice          string
	Style          string
	CSRFCookieName string

	// AudioThreshold is the body length above which an unparseable response
	// is taken to be raw audio.
	AudioThreshold int

	BootstrapTimeout time.Duration
	GenerateTimeout  time.Duration
}

// DefaultConfig returns the configuration used against the public site.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		GeneratePath:     DefaultGeneratePath,
		Locale:           DefaultLocale,
		Voice:            DefaultVoice,
		Style:            DefaultStyle,
		CSRFCookieName:   DefaultCSRFCookieName,
		AudioThreshold:   DefaultAudioThreshold,
		BootstrapTimeout: DefaultStageTimeout,
		GenerateTimeout:  DefaultStageTimeout,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.GeneratePath == "" {
		c.GeneratePath = d.GeneratePath
	}
	if c.Locale == "" {
		c.Locale = d.Locale
	}
	if c.Voice == "" {
		c.Voice = d.Voice
	}
	if c.Style == "" {
		c.Style = d.Style
	}
	if c.CSRFCookieName == "" {
		c.CSRFCookieName = d.CSRFCookieName
	}
	if c.AudioThreshold <= 0 {
		c.AudioThreshold = d.AudioThreshold
	}
	if c.BootstrapTimeout <= 0 {
		c.BootstrapTimeout = d.BootstrapTimeout
	}
	if c.GenerateTimeout <= 0 {
		c.GenerateTimeout = d.GenerateTimeout
	}
	return c
}
