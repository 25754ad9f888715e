package config

import (
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() {
	c.normalizePaths()
	c.normalizeLogging()
	c.normalizeHarvest()
	c.normalizeDedup()
	c.normalizePublish()
	c.normalizeEligibility()
}

func (c *Config) normalizePaths() {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.SourcesFile) == "" {
		c.Paths.SourcesFile = defaultSourcesFile
	}
	c.Paths.DataDir = ExpandPath(c.Paths.DataDir)
	c.Paths.LogDir = ExpandPath(c.Paths.LogDir)
	c.Paths.SourcesFile = ExpandPath(c.Paths.SourcesFile)
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
}

func (c *Config) normalizeHarvest() {
	if c.Harvest.PollInterval <= 0 {
		c.Harvest.PollInterval = defaultPollInterval
	}
	if c.Harvest.FetchTimeout <= 0 {
		c.Harvest.FetchTimeout = defaultFetchTimeout
	}
	if c.Harvest.PageRetries <= 0 {
		c.Harvest.PageRetries = defaultPageRetries
	}
	if c.Harvest.MinYear <= 0 {
		c.Harvest.MinYear = defaultMinYear
	}
	if c.Harvest.ProgressInterval <= 0 {
		c.Harvest.ProgressInterval = defaultProgressInterval
	}
	c.Harvest.UserAgent = strings.TrimSpace(c.Harvest.UserAgent)
	if c.Harvest.UserAgent == "" {
		c.Harvest.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeDedup() {
	if c.Dedup.PerceptualThreshold <= 0 {
		c.Dedup.PerceptualThreshold = defaultPerceptualThreshold
	}
	if c.Dedup.CandidateLimit <= 0 {
		c.Dedup.CandidateLimit = defaultCandidateLimit
	}
	if c.Dedup.SubjectSimilarity <= 0 {
		c.Dedup.SubjectSimilarity = defaultSubjectSimilarity
	}
}

func (c *Config) normalizePublish() {
	c.Publish.Mode = strings.ToLower(strings.TrimSpace(c.Publish.Mode))
	if c.Publish.Mode == "" {
		c.Publish.Mode = defaultPublishMode
	}
	if len(c.Publish.AllowedExtensions) == 0 {
		c.Publish.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	for i, ext := range c.Publish.AllowedExtensions {
		c.Publish.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	}
}

func (c *Config) normalizeEligibility() {
	if len(c.Eligibility.CourtesyMarkers) == 0 {
		c.Eligibility.CourtesyMarkers = append([]string(nil), defaultCourtesyMarkers...)
	}
	if len(c.Eligibility.ProtectedReasons) == 0 {
		c.Eligibility.ProtectedReasons = append([]string(nil), defaultProtectedReasons...)
	}
	if c.Eligibility.MinContentLength <= 0 {
		c.Eligibility.MinContentLength = defaultMinContentLength
	}
}

// ExpandPath resolves a leading ~ against the user home directory.
func ExpandPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || !strings.HasPrefix(trimmed, "~") {
		return trimmed
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return trimmed
	}
	if trimmed == "~" {
		return home
	}
	return filepath.Join(home, strings.TrimPrefix(trimmed, "~/"))
}
