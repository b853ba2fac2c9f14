package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/session"
	"github.com/IliaW/autocomplete-crawler/internal/telemetry"
)

// Dispatcher delivers one term to the autocomplete service.
type Dispatcher interface {
	Dispatch(ctx context.Context, term model.SearchTerm) model.Outcome
}

// DefaultSeeds are the 26 lowercase single-letter prefixes.
func DefaultSeeds() []model.SearchTerm {
	seeds := make([]model.SearchTerm, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		seeds = append(seeds, string(c))
	}
	return seeds
}

// Crawler expands the frontier until no new terms come back. It owns the frontier and the
// visited set; a term is moved to visited before it is dispatched and never pending again.
type Crawler struct {
	dispatcher Dispatcher
	metrics    *session.Metrics
	telemetry  *telemetry.CrawlMetrics

	frontier *Frontier
	visited  map[model.SearchTerm]struct{}
}

func NewCrawler(dispatcher Dispatcher, metrics *session.Metrics, crawlMetrics *telemetry.CrawlMetrics,
	seeds []model.SearchTerm) *Crawler {
	if len(seeds) == 0 {
		seeds = DefaultSeeds()
	}
	if crawlMetrics == nil {
		crawlMetrics = telemetry.NopCrawlMetrics()
	}
	return &Crawler{
		dispatcher: dispatcher,
		metrics:    metrics,
		telemetry:  crawlMetrics,
		frontier:   NewFrontier(seeds...),
		visited:    make(map[model.SearchTerm]struct{}),
	}
}

// Run loops until the frontier is empty or ctx is cancelled, then assembles the result from
// the visited set and the session metrics.
func (c *Crawler) Run(ctx context.Context) *model.CollectionResult {
	slog.Info("initiating name collection.", slog.Int("seeds", c.frontier.Len()))
	startedAt := time.Now()

	for c.frontier.Len() > 0 {
		if ctx.Err() != nil {
			slog.Warn("crawl interrupted.", slog.Int("pending", c.frontier.Len()),
				slog.Int("visited", len(c.visited)))
			break
		}
		c.step(ctx)
	}

	result := model.NewCollectionResult(c.visited, time.Since(startedAt), c.metrics.CallCount(),
		c.metrics.Snapshot())
	result.StartedAt = startedAt
	return result
}

func (c *Crawler) step(ctx context.Context) {
	term, ok := c.frontier.Pop()
	if !ok {
		return
	}
	c.visited[term] = struct{}{}
	c.telemetry.ProcessedTermsCnt(1)

	outcome := c.dispatcher.Dispatch(ctx, term)
	switch outcome.Kind {
	case model.Success:
		found, fresh := c.merge(outcome.Results)
		if fresh > 0 {
			slog.Info("discovered names.", slog.String("term", term), slog.Int("found", found),
				slog.Int("unique", fresh))
		} else {
			slog.Info("no unique names.", slog.String("term", term), slog.Int("found", found))
		}
	case model.MalformedResult:
		slog.Warn("malformed result.", slog.String("term", term), slog.String("endpoint", outcome.Endpoint),
			slog.String("err", outcome.Err.Error()))
	default:
		slog.Info("no data retrieved.", slog.String("term", term))
	}
}

// merge pushes every result that has not been visited yet and reports how many distinct names
// came back and how many of them were newly queued.
func (c *Crawler) merge(results []model.SearchTerm) (found int, fresh int) {
	distinct := make(map[model.SearchTerm]struct{}, len(results))
	for _, name := range results {
		distinct[name] = struct{}{}
		if _, seen := c.visited[name]; seen {
			continue
		}
		if c.frontier.Push(name) {
			fresh++
		}
	}
	c.telemetry.DiscoveredTermsCnt(int64(fresh))
	return len(distinct), fresh
}
