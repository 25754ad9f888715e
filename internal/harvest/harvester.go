package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mediaharvest/internal/config"
	"mediaharvest/internal/dedup"
	"mediaharvest/internal/eligibility"
	"mediaharvest/internal/fingerprint"
	"mediaharvest/internal/logging"
	"mediaharvest/internal/publish"
	"mediaharvest/internal/records"
	"mediaharvest/internal/sources"
)

// errTooManyResults signals internally that the unrestricted query is too
// coarse and the year-splitting fallback must take over.
var errTooManyResults = errors.New("query exceeds result cap")

// maxConsecutiveStoreFailures bounds how many items in a row may fail on a
// store operation before the run is treated as running against an
// unreachable store and aborted.
const maxConsecutiveStoreFailures = 3

// Store is the record store surface the harvester drives.
type Store interface {
	dedup.Store
	StartRun(ctx context.Context, source string) (string, error)
	FinishRun(ctx context.Context, source, runID string) error
	FindByID(ctx context.Context, source, sourceID string) (*records.MediaRecord, error)
	Upsert(ctx context.Context, record *records.MediaRecord) error
	Delete(ctx context.Context, source, sourceID string) (bool, error)
	ListUnpublished(ctx context.Context, source string) ([]*records.MediaRecord, error)
	ReportProblem(ctx context.Context, source, url, message string) error
}

// Summary reports what one harvest run did.
type Summary struct {
	RunID      string `json:"run_id"`
	Processed  int    `json:"processed"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Deleted    int    `json:"deleted"`
	Published  int    `json:"published"`
	Ignored    int    `json:"ignored"`
	Duplicates int    `json:"duplicates"`
	Problems   int    `json:"problems"`
}

// Harvester drives one source adapter through the full pipeline: pagination,
// fingerprinting, dedup, eligibility, publish policy, persistence.
type Harvester struct {
	store       Store
	fingerprint *fingerprint.Engine
	dedup       *dedup.Engine
	rules       *eligibility.Rules
	policy      *publish.Policy
	publisher   publish.Publisher
	harvestCfg  config.Harvest
	logger      *slog.Logger
}

// New builds a harvester from the shared components. policy may carry a
// per-source mode override; publisher may be nil when publishing is disabled.
func New(store Store, cfg *config.Config, policy *publish.Policy, publisher publish.Publisher, logger *slog.Logger) *Harvester {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Harvester{
		store:       store,
		fingerprint: fingerprint.NewEngine(cfg.FetchTimeoutDuration(), cfg.Harvest.UserAgent),
		dedup:       dedup.NewEngine(store, cfg.Dedup),
		rules:       eligibility.NewRules(cfg.Eligibility),
		policy:      policy,
		publisher:   publisher,
		harvestCfg:  cfg.Harvest,
		logger:      logging.WithComponent(logger, "harvester"),
	}
}

// Harvest runs one full pass over the adapter's source. Item-level failures
// become Problems and never abort the loop; only a cancelled context or an
// unreachable store returns an error.
func (h *Harvester) Harvest(ctx context.Context, adapter sources.Adapter) (Summary, error) {
	source := adapter.Name()
	logger := logging.WithSource(h.logger, source)

	state := &runState{knownIDs: make(map[string]struct{})}
	runID, err := h.store.StartRun(ctx, source)
	if err != nil {
		return state.summary, Wrap(ErrStore, source, "start run", "", err)
	}
	state.summary.RunID = runID
	logger = logger.With(logging.String(logging.FieldRunID, runID))
	logger.Info("harvest started")

	err = h.harvestQuery(ctx, adapter, logger, sources.Cursor{}, state)
	if errors.Is(err, errTooManyResults) {
		err = h.harvestByYear(ctx, adapter, logger, state)
	}
	if err != nil {
		h.finishRun(ctx, logger, source, runID)
		return state.summary, err
	}

	if err := h.detectDeletions(ctx, adapter, logger, state); err != nil {
		h.finishRun(ctx, logger, source, runID)
		return state.summary, err
	}

	h.finishRun(ctx, logger, source, runID)
	logger.Info("harvest finished",
		logging.Int("processed", state.summary.Processed),
		logging.Int("created", state.summary.Created),
		logging.Int("deleted", state.summary.Deleted),
		logging.Int("published", state.summary.Published),
		logging.Int("problems", state.summary.Problems),
	)
	return state.summary, nil
}

// runState is the mutable bookkeeping of one harvest pass.
type runState struct {
	summary       Summary
	knownIDs      map[string]struct{}
	storeFailures int
}

// harvestByYear re-issues the query restricted to each year from the current
// year down to the configured minimum, each as an independent sub-harvest.
func (h *Harvester) harvestByYear(ctx context.Context, adapter sources.Adapter, logger *slog.Logger, state *runState) error {
	currentYear := time.Now().Year()
	logger.Info("falling back to year-restricted queries",
		logging.Int("from", currentYear),
		logging.Int("to", h.harvestCfg.MinYear),
	)
	for year := currentYear; year >= h.harvestCfg.MinYear; year-- {
		err := h.harvestQuery(ctx, adapter, logger, sources.Cursor{Year: year}, state)
		if errors.Is(err, errTooManyResults) {
			// A single year still over the cap cannot be split further.
			h.reportProblem(ctx, adapter.Name(), fmt.Sprintf("query:year=%d", year), "result set exceeds cap even restricted to one year", &state.summary)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// harvestQuery pages through one query until the adapter signals the end.
func (h *Harvester) harvestQuery(ctx context.Context, adapter sources.Adapter, logger *slog.Logger, cursor sources.Cursor, state *runState) error {
	source := adapter.Name()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		page, err := h.fetchPage(ctx, adapter, cursor)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			// The page is abandoned; the failure stays auditable.
			h.reportProblem(ctx, source, cursorKey(cursor), err.Error(), &state.summary)
			logger.Warn("page abandoned after retries", logging.Error(err), logging.Int("offset", cursor.Offset))
			return nil
		}
		if page.TooManyResults {
			return errTooManyResults
		}

		for i := range page.Items {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := page.Items[i]
			state.knownIDs[item.ID] = struct{}{}
			if err := h.processItem(ctx, source, item, &state.summary); err != nil {
				// A store failure skips the item like any other failure, but a
				// run of them in a row means the store itself is gone.
				if errors.Is(err, ErrStore) {
					state.storeFailures++
					if state.storeFailures >= maxConsecutiveStoreFailures {
						return Wrap(ErrStore, source, "abort harvest", fmt.Sprintf("%d consecutive store failures", state.storeFailures), err)
					}
				} else {
					state.storeFailures = 0
				}
				h.reportProblem(ctx, source, itemKey(item), err.Error(), &state.summary)
				logger.Warn("item skipped", logging.String(logging.FieldRecordID, item.ID), logging.Error(err))
			} else {
				state.storeFailures = 0
			}
			state.summary.Processed++
			if h.harvestCfg.ProgressInterval > 0 && state.summary.Processed%h.harvestCfg.ProgressInterval == 0 {
				logger.Info("harvest progress", logging.Int("processed", state.summary.Processed))
			}
		}

		if page.EndOfResults || len(page.Items) == 0 {
			return nil
		}
		cursor = page.NextCursor
	}
}

// fetchPage retries transient fetch failures a bounded number of times.
func (h *Harvester) fetchPage(ctx context.Context, adapter sources.Adapter, cursor sources.Cursor) (sources.Page, error) {
	attempts := h.harvestCfg.PageRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		page, err := adapter.FetchPage(ctx, cursor)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return sources.Page{}, err
		}
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return sources.Page{}, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return sources.Page{}, Wrap(ErrTransient, adapter.Name(), "fetch page", fmt.Sprintf("%d attempts", attempts), lastErr)
}

// processItem runs the per-item pipeline: upsert-by-stable-id with refresh
// semantics, fingerprinting, dedup, eligibility, and the publish gate. The
// pipeline is idempotent; running it twice on the same input converges.
func (h *Harvester) processItem(ctx context.Context, source string, item sources.SourceItem, summary *Summary) error {
	if item.ID == "" {
		return Wrap(ErrUnparsable, source, "process item", "item has no stable id", nil)
	}

	existing, err := h.store.FindByID(ctx, source, item.ID)
	if err != nil {
		return Wrap(ErrStore, source, "find record", item.ID, err)
	}
	record := mergeItem(existing, source, item)
	if existing == nil {
		summary.Created++
	} else {
		summary.Updated++
	}

	if len(record.Variants) == 0 {
		record.Status = records.StatusIgnored
		record.Ignored = true
		record.IgnoredReason = eligibility.ReasonNoResolvableAsset
		if err := h.store.Upsert(ctx, record); err != nil {
			return Wrap(ErrStore, source, "upsert record", record.SourceID, err)
		}
		summary.Ignored++
		return nil
	}

	for i := range record.Variants {
		if err := h.fingerprint.Compute(ctx, &record.Variants[i]); err != nil {
			h.reportProblem(ctx, source, record.Variants[i].AssetURL, fmt.Sprintf("fingerprint %s: %v", record.Variants[i].Name, err), summary)
		}
	}

	refs, err := h.dedup.FindDuplicates(ctx, record)
	if err != nil {
		return Wrap(ErrStore, source, "find duplicates", record.SourceID, err)
	}
	record.Duplicates = mergeDuplicates(record.Duplicates, refs)

	decision := h.rules.Evaluate(record)
	record.Status = decision.Status
	record.Ignored = decision.Ignored
	record.IgnoredReason = decision.Reason

	// A published record still goes through the gate: variants added later
	// publish independently, and the per-variant published-name check makes
	// the pass idempotent for the ones already out.
	if record.Status == records.StatusEligible || record.Status == records.StatusPublished {
		h.publishEligible(ctx, record, summary)
	}

	switch record.Status {
	case records.StatusIgnored:
		summary.Ignored++
	case records.StatusDuplicate:
		summary.Duplicates++
	}

	if err := h.store.Upsert(ctx, record); err != nil {
		return Wrap(ErrStore, source, "upsert record", record.SourceID, err)
	}
	return nil
}

// publishEligible runs the publish gate per variant. Destination failures
// become Problems; the record keeps harvesting either way.
func (h *Harvester) publishEligible(ctx context.Context, record *records.MediaRecord, summary *Summary) {
	if h.policy == nil || h.publisher == nil {
		return
	}
	for i := range record.Variants {
		variant := &record.Variants[i]
		if !h.policy.ShouldPublishNow(record, variant, false) {
			continue
		}
		name, err := h.publisher.Publish(ctx, publish.Request{
			Title:     record.Title,
			Markup:    record.Description,
			Extension: variant.FileExtension,
			AssetURL:  variant.AssetURL,
			SHA1:      variant.SHA1,
		})
		if err != nil {
			h.reportProblem(ctx, record.Source, variant.AssetURL, fmt.Sprintf("publish %s: %v", variant.Name, err), summary)
			continue
		}
		record.AddPublishedName(variant.Name, name)
		summary.Published++
	}
	if record.IsPublished() {
		record.Status = records.StatusPublished
	}
}

// detectDeletions re-verifies stored, not-yet-published records the source
// did not report this run. Only a confirmed upstream absence deletes; a
// verification error leaves the record untouched.
func (h *Harvester) detectDeletions(ctx context.Context, adapter sources.Adapter, logger *slog.Logger, state *runState) error {
	source := adapter.Name()
	missing, err := h.store.ListUnpublished(ctx, source)
	if err != nil {
		return Wrap(ErrStore, source, "list unpublished records", "", err)
	}
	for _, record := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, known := state.knownIDs[record.SourceID]; known {
			continue
		}
		_, found, err := adapter.RefreshOne(ctx, record.SourceID)
		if err != nil {
			h.reportProblem(ctx, source, record.SourceID, fmt.Sprintf("verify possible deletion: %v", err), &state.summary)
			continue
		}
		if found {
			continue
		}
		if _, err := h.store.Delete(ctx, source, record.SourceID); err != nil {
			return Wrap(ErrStore, source, "delete record", record.SourceID, err)
		}
		logger.Info("record deleted upstream", logging.String(logging.FieldRecordID, record.SourceID))
		state.summary.Deleted++
	}
	return nil
}

func (h *Harvester) finishRun(ctx context.Context, logger *slog.Logger, source, runID string) {
	if err := h.store.FinishRun(ctx, source, runID); err != nil {
		logger.Warn("finish run", logging.Error(err))
	}
}

func (h *Harvester) reportProblem(ctx context.Context, source, url, message string, summary *Summary) {
	summary.Problems++
	if err := h.store.ReportProblem(ctx, source, url, message); err != nil {
		h.logger.Warn("report problem", logging.String(logging.FieldURL, url), logging.Error(err))
	}
}

// mergeItem applies refresh semantics: descriptive fields are overwritten
// from the freshest source read, while identity, computed hashes, duplicate
// references, ignore state, and published names are preserved.
func mergeItem(existing *records.MediaRecord, source string, item sources.SourceItem) *records.MediaRecord {
	record := &records.MediaRecord{Source: source, SourceID: item.ID, Status: records.StatusNew}
	if existing != nil {
		record.ID = existing.ID
		record.Status = existing.Status
		record.Ignored = existing.Ignored
		record.IgnoredReason = existing.IgnoredReason
		record.Duplicates = existing.Duplicates
		record.PublishedNames = existing.PublishedNames
		record.CreatedAt = existing.CreatedAt
	}
	record.SubSource = item.SubSource
	record.Title = item.Title
	record.Description = item.Description
	record.Categories = item.Categories
	record.TypeTags = item.TypeTags
	record.CapturedAt = item.CapturedAt
	record.PublishedAt = item.PublishedAt

	record.Variants = make([]records.FileVariant, 0, len(item.Variants))
	for _, link := range item.Variants {
		if link.AssetURL == "" {
			continue
		}
		variant := records.FileVariant{Name: link.Name, AssetURL: link.AssetURL}
		if existing != nil {
			if prev := existing.Variant(link.Name); prev != nil && prev.AssetURL == link.AssetURL {
				// Same asset, keep the cached fingerprints.
				variant = *prev
			}
		}
		record.Variants = append(record.Variants, variant)
	}
	return record
}

// mergeDuplicates unions newly detected references into the stored set.
// References disappear only through an explicit reset, never because a later
// pass happened not to re-find them.
func mergeDuplicates(stored, found []records.DuplicateRef) []records.DuplicateRef {
	seen := make(map[string]int, len(stored))
	merged := append([]records.DuplicateRef(nil), stored...)
	for i, ref := range merged {
		seen[duplicateKey(ref)] = i
	}
	for _, ref := range found {
		if i, ok := seen[duplicateKey(ref)]; ok {
			merged[i].Score = ref.Score
			continue
		}
		seen[duplicateKey(ref)] = len(merged)
		merged = append(merged, ref)
	}
	return merged
}

func duplicateKey(ref records.DuplicateRef) string {
	return ref.Source + "\x00" + ref.SourceID + "\x00" + ref.Variant + "\x00" + string(ref.Kind)
}

func cursorKey(cursor sources.Cursor) string {
	if cursor.Year > 0 {
		return fmt.Sprintf("query:offset=%d,year=%d", cursor.Offset, cursor.Year)
	}
	return fmt.Sprintf("query:offset=%d", cursor.Offset)
}

func itemKey(item sources.SourceItem) string {
	if len(item.Variants) > 0 && item.Variants[0].AssetURL != "" {
		return item.Variants[0].AssetURL
	}
	return "item:" + item.ID
}
