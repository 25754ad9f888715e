package eligibility

import (
	"strings"

	"golang.org/x/text/cases"

	"mediaharvest/internal/config"
	"mediaharvest/internal/records"
)

// Stable ignore reasons. These strings are persisted, so changing them
// changes the behavior of protected-reason matching on old records.
const (
	ReasonForbiddenCategory  = "forbidden category"
	ReasonIdentifiablePerson = "identifiable person in restricted category"
	ReasonCourtesyContent    = "courtesy / non-free content marker"
	ReasonDegenerateContent  = "title and description too short"
	ReasonNoResolvableAsset  = "no resolvable asset"
)

// Decision is the outcome of evaluating a record against the ignore rules.
type Decision struct {
	Status  records.Status
	Ignored bool
	Reason  string
}

// Rules is the immutable eligibility configuration, built once at startup
// and shared by every harvest loop.
type Rules struct {
	forbiddenCategories map[string]struct{}
	peopleCategories    map[string]struct{}
	personTypeTags      map[string]struct{}
	courtesyMarkers     []string
	courtesyAllowList   []string
	minContentLength    int
	protectedReasons    []string
	fold                cases.Caser
}

// NewRules builds the rule set from the eligibility configuration section.
func NewRules(cfg config.Eligibility) *Rules {
	fold := cases.Fold()
	r := &Rules{
		forbiddenCategories: foldSet(fold, cfg.ForbiddenCategories),
		peopleCategories:    foldSet(fold, cfg.PeopleCategories),
		personTypeTags:      foldSet(fold, cfg.PersonTypeTags),
		minContentLength:    cfg.MinContentLength,
		protectedReasons:    append([]string(nil), cfg.ProtectedReasons...),
		fold:                fold,
	}
	for _, marker := range cfg.CourtesyMarkers {
		r.courtesyMarkers = append(r.courtesyMarkers, fold.String(marker))
	}
	for _, term := range cfg.CourtesyAllowList {
		r.courtesyAllowList = append(r.courtesyAllowList, fold.String(term))
	}
	return r
}

// Evaluate computes the record's eligibility on a refresh. Rules run in
// priority order; a protected ignore reason short-circuits everything so
// manual operator decisions survive refreshes.
func (r *Rules) Evaluate(record *records.MediaRecord) Decision {
	if record.Ignored && r.IsProtected(record.IgnoredReason) {
		return Decision{Status: records.StatusIgnored, Ignored: true, Reason: record.IgnoredReason}
	}

	if reason, ignored := r.categoryRule(record); ignored {
		return Decision{Status: records.StatusIgnored, Ignored: true, Reason: reason}
	}
	if r.courtesyRule(record) {
		return Decision{Status: records.StatusIgnored, Ignored: true, Reason: ReasonCourtesyContent}
	}
	if r.degenerateContentRule(record) {
		return Decision{Status: records.StatusIgnored, Ignored: true, Reason: ReasonDegenerateContent}
	}

	// Exact-duplicate rule. A record that has itself been published is not
	// demoted: publishing is never undone by later-discovered duplicates.
	if record.HasExactDuplicate() && !record.IsPublished() {
		return Decision{Status: records.StatusDuplicate}
	}

	if record.IsPublished() {
		return Decision{Status: records.StatusPublished}
	}
	return Decision{Status: records.StatusEligible}
}

// IsProtected reports whether an ignore reason matches a protected
// substring and must survive refresh until explicitly reset.
func (r *Rules) IsProtected(reason string) bool {
	if reason == "" {
		return false
	}
	folded := r.fold.String(reason)
	for _, protected := range r.protectedReasons {
		if strings.Contains(folded, r.fold.String(protected)) {
			return true
		}
	}
	return false
}

func (r *Rules) categoryRule(record *records.MediaRecord) (string, bool) {
	for _, category := range record.Categories {
		if _, forbidden := r.forbiddenCategories[r.fold.String(category)]; forbidden {
			return ReasonForbiddenCategory, true
		}
	}

	// Narrow heuristic for an image of an identifiable person: exactly one
	// category, it is a known people category, and every type tag has an
	// unspecified-person shape.
	if len(record.Categories) == 1 && len(record.TypeTags) > 0 {
		if _, people := r.peopleCategories[r.fold.String(record.Categories[0])]; people {
			allPerson := true
			for _, tag := range record.TypeTags {
				if _, ok := r.personTypeTags[r.fold.String(tag)]; !ok {
					allPerson = false
					break
				}
			}
			if allPerson {
				return ReasonIdentifiablePerson, true
			}
		}
	}
	return "", false
}

func (r *Rules) courtesyRule(record *records.MediaRecord) bool {
	text := r.fold.String(record.Description)
	marked := false
	for _, marker := range r.courtesyMarkers {
		if strings.Contains(text, marker) {
			marked = true
			break
		}
	}
	if !marked {
		return false
	}
	for _, term := range r.courtesyAllowList {
		if strings.Contains(text, term) {
			return false
		}
	}
	return true
}

func (r *Rules) degenerateContentRule(record *records.MediaRecord) bool {
	combined := strings.TrimSpace(record.Title) + strings.TrimSpace(record.Description)
	return len(combined) < r.minContentLength
}

func foldSet(fold cases.Caser, values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		set[fold.String(trimmed)] = struct{}{}
	}
	return set
}
