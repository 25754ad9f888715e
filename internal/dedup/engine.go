package dedup

import (
	"context"
	"fmt"

	"mediaharvest/internal/config"
	"mediaharvest/internal/fingerprint"
	"mediaharvest/internal/records"
	"mediaharvest/internal/textutil"
)

// Store is the subset of the record store the dedup engine queries.
type Store interface {
	FindByHash(ctx context.Context, sha1 string) ([]*records.MediaRecord, error)
	ListPerceptualCandidates(ctx context.Context, source string, limit int) ([]*records.MediaRecord, error)
}

// Engine resolves exact and near-duplicate matches for a record.
type Engine struct {
	store             Store
	hammingThreshold  int
	candidateLimit    int
	subjectSimilarity float64
}

// NewEngine constructs a dedup engine from the dedup configuration section.
func NewEngine(store Store, cfg config.Dedup) *Engine {
	return &Engine{
		store:             store,
		hammingThreshold:  cfg.PerceptualThreshold,
		candidateLimit:    cfg.CandidateLimit,
		subjectSimilarity: cfg.SubjectSimilarity,
	}
}

// FindDuplicates returns duplicate references for the record. Exact matches
// are found by sha1 across all sources; when none exist, perceptual hashes
// are compared against a bounded candidate set from the same source scoped
// by subject similarity. Exact matches block publishing; similar matches are
// surfaced as "other versions" metadata only.
func (e *Engine) FindDuplicates(ctx context.Context, record *records.MediaRecord) ([]records.DuplicateRef, error) {
	refs, err := e.exactMatches(ctx, record)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return refs, nil
	}
	return e.similarMatches(ctx, record)
}

func (e *Engine) exactMatches(ctx context.Context, record *records.MediaRecord) ([]records.DuplicateRef, error) {
	var refs []records.DuplicateRef
	seen := make(map[string]struct{})
	for _, variant := range record.Variants {
		if variant.SHA1 == "" {
			continue
		}
		matches, err := e.store.FindByHash(ctx, variant.SHA1)
		if err != nil {
			return nil, fmt.Errorf("exact duplicate lookup: %w", err)
		}
		for _, match := range matches {
			if match.Source == record.Source && match.SourceID == record.SourceID {
				continue
			}
			key := match.Source + "\x00" + match.SourceID + "\x00" + variant.Name
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			refs = append(refs, records.DuplicateRef{
				Source:   match.Source,
				SourceID: match.SourceID,
				Variant:  variant.Name,
				Kind:     records.DuplicateExact,
				Score:    1,
			})
		}
	}
	return refs, nil
}

func (e *Engine) similarMatches(ctx context.Context, record *records.MediaRecord) ([]records.DuplicateRef, error) {
	if !hasPerceptualHash(record) {
		return nil, nil
	}

	candidates, err := e.store.ListPerceptualCandidates(ctx, record.Source, e.candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("perceptual candidate lookup: %w", err)
	}

	subject := textutil.NewSubject(record.SubjectText())
	var refs []records.DuplicateRef
	for _, candidate := range candidates {
		if candidate.Source == record.Source && candidate.SourceID == record.SourceID {
			continue
		}
		if subject != nil {
			similarity := textutil.CosineSimilarity(subject, textutil.NewSubject(candidate.SubjectText()))
			if similarity < e.subjectSimilarity {
				continue
			}
		}
		if ref, ok := e.closestVariantMatch(record, candidate); ok {
			refs = append(refs, ref)
		}
	}
	return refs, nil
}

func (e *Engine) closestVariantMatch(record, candidate *records.MediaRecord) (records.DuplicateRef, bool) {
	best := records.DuplicateRef{}
	bestDistance := e.hammingThreshold + 1
	for _, variant := range record.Variants {
		if variant.PerceptualHash == 0 {
			continue
		}
		for _, other := range candidate.Variants {
			if other.PerceptualHash == 0 {
				continue
			}
			distance := fingerprint.Distance(variant.PerceptualHash, other.PerceptualHash)
			if distance < bestDistance {
				bestDistance = distance
				best = records.DuplicateRef{
					Source:   candidate.Source,
					SourceID: candidate.SourceID,
					Variant:  variant.Name,
					Kind:     records.DuplicateSimilar,
					Score:    1 - float64(distance)/64,
				}
			}
		}
	}
	return best, bestDistance <= e.hammingThreshold
}

func hasPerceptualHash(record *records.MediaRecord) bool {
	for _, variant := range record.Variants {
		if variant.PerceptualHash != 0 {
			return true
		}
	}
	return false
}
