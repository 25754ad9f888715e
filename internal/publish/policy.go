package publish

import (
	"fmt"
	"strings"

	"mediaharvest/internal/config"
	"mediaharvest/internal/records"
)

// Mode is the upload mode governing when eligible records are published.
type Mode string

const (
	ModeDisabled     Mode = "disabled"
	ModeManual       Mode = "manual"
	ModeAuto         Mode = "auto"
	ModeAutoFromDate Mode = "auto_from_date"
)

// ParseMode converts a configuration string into a known Mode.
func ParseMode(value string) (Mode, error) {
	mode := Mode(strings.ToLower(strings.TrimSpace(value)))
	switch mode {
	case ModeDisabled, ModeManual, ModeAuto, ModeAutoFromDate:
		return mode, nil
	case "":
		return ModeManual, nil
	default:
		return "", fmt.Errorf("unknown publish mode %q", value)
	}
}

// Policy gates whether an eligible record should be published right now.
type Policy struct {
	mode              Mode
	fromYear          int
	allowedExtensions map[string]struct{}
}

// NewPolicy builds the policy from the publish configuration section.
func NewPolicy(cfg config.Publish) (*Policy, error) {
	mode, err := ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext == "" {
			continue
		}
		allowed[ext] = struct{}{}
	}
	return &Policy{mode: mode, fromYear: cfg.FromYear, allowedExtensions: allowed}, nil
}

// Mode returns the policy's global mode.
func (p *Policy) Mode() Mode {
	return p.mode
}

// WithMode returns a copy of the policy with a different mode, used for
// per-source overrides from the source definitions file.
func (p *Policy) WithMode(mode Mode) *Policy {
	clone := *p
	clone.mode = mode
	return &clone
}

// ShouldPublishNow decides whether the named variant of a record should be
// published right now. Ignored records never publish; records already
// published for the variant never republish; the variant's file type must be
// on the allow list; unattended (non-manual) publishing additionally requires
// that no unresolved exact duplicates exist and, in auto_from_date mode,
// that the record's relevant date falls on or after the configured year.
func (p *Policy) ShouldPublishNow(record *records.MediaRecord, variant *records.FileVariant, isManualTrigger bool) bool {
	if record == nil || variant == nil {
		return false
	}
	if p.mode == ModeDisabled {
		return false
	}
	if record.Ignored || record.IsVariantPublished(variant.Name) {
		return false
	}
	if !p.extensionAllowed(variant.FileExtension) {
		return false
	}
	if isManualTrigger {
		return p.mode != ModeDisabled
	}

	// Unattended gates.
	if p.mode == ModeManual {
		return false
	}
	if record.HasExactDuplicate() {
		return false
	}
	if p.mode == ModeAutoFromDate {
		year := relevantYear(record)
		if year == 0 || year < p.fromYear {
			return false
		}
	}
	return true
}

func (p *Policy) extensionAllowed(extension string) bool {
	if len(p.allowedExtensions) == 0 {
		return true
	}
	_, ok := p.allowedExtensions[strings.ToLower(strings.TrimPrefix(extension, "."))]
	return ok
}

func relevantYear(record *records.MediaRecord) int {
	if record.CapturedAt != nil {
		return record.CapturedAt.Year()
	}
	if record.PublishedAt != nil {
		return record.PublishedAt.Year()
	}
	return 0
}
