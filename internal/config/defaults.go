package config

import "time"

const (
	defaultDataDir             = "~/.local/share/mediaharvest"
	defaultLogDir              = "~/.local/share/mediaharvest/logs"
	defaultSourcesFile         = "~/.config/mediaharvest/sources.yaml"
	defaultAPIBind             = "127.0.0.1:7519"
	defaultLogLevel            = "info"
	defaultLogFormat           = "console"
	defaultPollInterval        = 300
	defaultFetchTimeout        = 60
	defaultPageRetries         = 3
	defaultMinYear             = 2000
	defaultProgressInterval    = 100
	defaultUserAgent           = "mediaharvest/1.0 (+https://example.org/mediaharvest)"
	defaultPerceptualThreshold = 10
	defaultCandidateLimit      = 500
	defaultSubjectSimilarity   = 0.35
	defaultPublishMode         = "manual"
	defaultMinContentLength    = 20
)

var defaultAllowedExtensions = []string{"jpg", "jpeg", "png", "gif", "tif", "tiff", "webp"}

// Protected ignore reasons survive refresh; only an operator reset clears them.
var defaultProtectedReasons = []string{"block list", "Public Domain Mark", "manually ignored"}

var defaultCourtesyMarkers = []string{"courtesy of", "image courtesy", "used with permission"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			SourcesFile: defaultSourcesFile,
			APIBind:     defaultAPIBind,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Harvest: Harvest{
			PollInterval:     defaultPollInterval,
			FetchTimeout:     defaultFetchTimeout,
			PageRetries:      defaultPageRetries,
			MinYear:          defaultMinYear,
			ProgressInterval: defaultProgressInterval,
			UserAgent:        defaultUserAgent,
		},
		Dedup: Dedup{
			PerceptualThreshold: defaultPerceptualThreshold,
			CandidateLimit:      defaultCandidateLimit,
			SubjectSimilarity:   defaultSubjectSimilarity,
		},
		Publish: Publish{
			Mode:              defaultPublishMode,
			AllowedExtensions: append([]string(nil), defaultAllowedExtensions...),
		},
		Eligibility: Eligibility{
			CourtesyMarkers:  append([]string(nil), defaultCourtesyMarkers...),
			MinContentLength: defaultMinContentLength,
			ProtectedReasons: append([]string(nil), defaultProtectedReasons...),
		},
	}
}

// FetchTimeoutDuration returns the per-fetch timeout as a duration.
func (c *Config) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.Harvest.FetchTimeout) * time.Second
}

// PollIntervalDuration returns the daemon scheduling interval as a duration.
func (c *Config) PollIntervalDuration() time.Duration {
	return time.Duration(c.Harvest.PollInterval) * time.Second
}
