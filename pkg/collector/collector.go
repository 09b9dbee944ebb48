// Package collector orchestrates the collection run: project discovery,
// per-project merge request listing, bounded concurrent detail-fetches,
// and cache reconciliation.
package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/glmr-tools/glmr/pkg/client"
	"github.com/glmr-tools/glmr/pkg/gitlab"
	"github.com/glmr-tools/glmr/pkg/logging"
	"github.com/glmr-tools/glmr/pkg/store"
)

// Prometheus metrics for collection runs.
var (
	itemsSeenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_collector_items_seen_total",
		Help: "Merge requests considered across all listings",
	})

	recordsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_collector_records_written_total",
		Help: "Records that passed the staleness check and were stored",
	})

	recordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_collector_records_skipped_total",
		Help: "Assembled records skipped because the cached copy was as fresh",
	})

	itemsDiscardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_collector_items_discarded_total",
		Help: "Merge requests discarded because a detail-fetch failed",
	})

	projectsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "glmr_collector_projects_skipped_total",
		Help: "Projects skipped because their merge request listing failed",
	})
)

// DefaultMaxConcurrency bounds in-flight detail-fetches when the
// configuration does not say otherwise.
const DefaultMaxConcurrency = 5

// Summary reports the aggregate counts of a collection run.
type Summary struct {
	// Projects is the number of projects discovered in the group.
	Projects int

	// Seen is the total number of merge requests considered, regardless of
	// detail-fetch success.
	Seen int

	// Written is the number of records actually stored in the cache.
	Written int
}

// RecordCache captures the cache behaviors the collector depends on.
type RecordCache interface {
	ShouldStore(record gitlab.Record) bool
	Upsert(record gitlab.Record)
	Flush() error
}

// Config holds collector configuration.
type Config struct {
	// Group is the group id or full path that scopes discovery.
	Group string

	// UpdatedAfter optionally limits merge request listings (ISO8601).
	UpdatedAfter string

	// MaxConcurrency caps in-flight detail-fetches across the whole run.
	MaxConcurrency int

	// CacheDir is the directory holding the record cache.
	CacheDir string
}

// Collector runs the collection workflow against one group.
type Collector struct {
	client    *client.Client
	config    Config
	sem       chan struct{}
	logger    zerolog.Logger
	openCache func() (RecordCache, error)
}

// New creates a collector. The semaphore bounding detail-fetches is shared
// across every project in the run.
func New(c *client.Client, cfg Config) *Collector {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}

	col := &Collector{
		client: c,
		config: cfg,
		sem:    make(chan struct{}, cfg.MaxConcurrency),
		logger: logging.NewLogger("collector"),
	}
	col.openCache = func() (RecordCache, error) {
		return store.Open(cfg.CacheDir)
	}
	return col
}

// SetCacheOpener overrides how the record cache is constructed (for testing).
func (col *Collector) SetCacheOpener(open func() (RecordCache, error)) {
	col.openCache = open
}

// Run executes the collection workflow and returns summary statistics.
// Cache initialization, group project listing, and the final flush are
// fatal on failure; everything in between is isolated per project or per
// merge request.
func (col *Collector) Run(ctx context.Context) (Summary, error) {
	cache, err := col.openCache()
	if err != nil {
		col.logger.Error().Err(err).Str("dir", col.config.CacheDir).Msg("Failed to initialize record cache")
		return Summary{}, fmt.Errorf("initialize cache at %s: %w", col.config.CacheDir, err)
	}

	projects, err := gitlab.FetchGroupProjects(ctx, col.client, col.config.Group)
	if err != nil {
		col.logger.Error().Err(err).Str("group", col.config.Group).Msg("Failed to fetch group projects")
		return Summary{}, fmt.Errorf("fetch projects for %s: %w", col.config.Group, err)
	}
	col.logger.Info().
		Str("group", col.config.Group).
		Int("projects", len(projects)).
		Msg("Discovered projects with merge requests enabled")

	summary := Summary{Projects: len(projects)}
	for _, project := range projects {
		seen, written := col.collectProject(ctx, cache, project)
		summary.Seen += seen
		summary.Written += written
	}

	if err := cache.Flush(); err != nil {
		col.logger.Error().Err(err).Str("dir", col.config.CacheDir).Msg("Failed to flush record cache")
		return Summary{}, fmt.Errorf("flush cache at %s: %w", col.config.CacheDir, err)
	}

	col.logger.Info().
		Int("projects", summary.Projects).
		Int("seen", summary.Seen).
		Int("written", summary.Written).
		Msg("Collection run complete")

	return summary, nil
}

// collectProject lists a project's merge requests and drains their
// detail-fetches as they complete. The drain loop is the only goroutine
// touching the cache, preserving the single-writer discipline.
func (col *Collector) collectProject(ctx context.Context, cache RecordCache, project gitlab.Project) (seen, written int) {
	logger := col.logger.With().Str("project", project.PathWithNamespace).Logger()

	mrs, err := gitlab.FetchProjectMergeRequests(ctx, col.client, project.ID, col.config.UpdatedAfter)
	if err != nil {
		projectsSkippedTotal.Inc()
		logger.Warn().Err(err).Msg("Skipping project due to GitLab API error")
		return 0, 0
	}
	logger.Debug().Int("merge_requests", len(mrs)).Msg("Fetched merge requests")

	itemsSeenTotal.Add(float64(len(mrs)))

	results := make(chan *gitlab.Record, len(mrs))
	var wg sync.WaitGroup
	for _, mr := range mrs {
		wg.Add(1)
		go func(mr gitlab.MergeRequest) {
			defer wg.Done()
			results <- col.buildRecord(ctx, project, mr)
		}(mr)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for record := range results {
		if record == nil {
			continue
		}
		if cache.ShouldStore(*record) {
			cache.Upsert(*record)
			recordsWrittenTotal.Inc()
			written++
		} else {
			recordsSkippedTotal.Inc()
			logger.Debug().Str("key", record.Key().String()).Msg("Cached record is at least as fresh, skipping")
		}
	}

	return len(mrs), written
}

// buildRecord performs the detail-fetch for one merge request: the three
// detail calls run concurrently with each other inside one slot of the
// global semaphore. Any sub-fetch failure discards the whole record.
func (col *Collector) buildRecord(ctx context.Context, project gitlab.Project, mr gitlab.MergeRequest) *gitlab.Record {
	col.sem <- struct{}{}
	defer func() { <-col.sem }()

	var (
		discussions []gitlab.Discussion
		notes       []gitlab.Note
		reviewers   []gitlab.ReviewerState
	)
	errs := make([]error, 3)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		discussions, errs[0] = gitlab.FetchMergeRequestDiscussions(ctx, col.client, project.ID, mr.IID)
	}()
	go func() {
		defer wg.Done()
		notes, errs[1] = gitlab.FetchMergeRequestNotes(ctx, col.client, project.ID, mr.IID)
	}()
	go func() {
		defer wg.Done()
		reviewers, errs[2] = gitlab.FetchMergeRequestReviewers(ctx, col.client, project.ID, mr.IID)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			itemsDiscardedTotal.Inc()
			col.logger.Error().
				Err(err).
				Str("project", project.PathWithNamespace).
				Int("mr_iid", mr.IID).
				Msg("Failed to fetch merge request details")
			return nil
		}
	}

	return &gitlab.Record{
		Project:      project,
		MergeRequest: mr,
		Discussions:  discussions,
		Notes:        notes,
		Reviewers:    reviewers,
	}
}
