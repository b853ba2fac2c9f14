package crawler

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/session"
)

// graphDispatcher answers from a fixed suggestion graph. Terms missing from the graph yield NoData.
// It checks the frontier/visited invariants on every call.
type graphDispatcher struct {
	t          *testing.T
	crawler    *Crawler
	metrics    *session.Metrics
	graph      map[string][]string
	malformed  map[string]bool
	dispatched []string
	lastSize   int
}

func (g *graphDispatcher) Dispatch(_ context.Context, term model.SearchTerm) model.Outcome {
	g.t.Helper()
	g.metrics.RecordCall()

	if slices.Contains(g.dispatched, term) {
		g.t.Fatalf("term %q dispatched twice", term)
	}
	g.dispatched = append(g.dispatched, term)

	c := g.crawler
	if _, ok := c.visited[term]; !ok {
		g.t.Fatalf("term %q dispatched before being marked visited", term)
	}
	for v := range c.visited {
		if c.frontier.contains(v) {
			g.t.Fatalf("term %q is both visited and pending", v)
		}
	}
	if len(c.visited) != g.lastSize+1 {
		g.t.Fatalf("visited should grow by one per step: %d -> %d", g.lastSize, len(c.visited))
	}
	g.lastSize = len(c.visited)

	if g.malformed[term] {
		return model.Outcome{Kind: model.MalformedResult, Err: errors.New("response has no results list")}
	}
	results, ok := g.graph[term]
	if !ok {
		return model.Outcome{Kind: model.NoData, Err: errors.New("all endpoints exhausted")}
	}
	return model.Outcome{Kind: model.Success, Results: results}
}

func newGraphCrawler(t *testing.T, graph map[string][]string, seeds ...string) (*Crawler, *graphDispatcher) {
	t.Helper()
	s, err := session.New([]string{"http://svc.local/v1/autocomplete"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g := &graphDispatcher{t: t, metrics: s.Metrics, graph: graph, malformed: map[string]bool{}}
	c := NewCrawler(g, s.Metrics, nil, seeds)
	g.crawler = c
	return c, g
}

func assertNames(t *testing.T, got []string, want ...string) {
	t.Helper()
	if !slices.Equal(got, want) {
		t.Fatalf("expected names %v, got %v", want, got)
	}
}

func TestCrawlExpandsUntilExhausted(t *testing.T) {
	c, _ := newGraphCrawler(t, map[string][]string{
		"a":   {"ant"},
		"ant": {},
		"b":   {"bee"},
		"bee": {},
	}, "a", "b")

	res := c.Run(context.Background())

	assertNames(t, res.Names, "a", "ant", "b", "bee")
	if res.CallCount != 4 {
		t.Fatalf("expected call count 4, got %d", res.CallCount)
	}
	if c.frontier.Len() != 0 {
		t.Fatalf("expected empty frontier, got %d", c.frontier.Len())
	}
}

func TestCrawlNoDataDoesNotStopLoop(t *testing.T) {
	c, g := newGraphCrawler(t, map[string][]string{
		"r": {"rat"},
	}, "q", "r")

	res := c.Run(context.Background())

	assertNames(t, res.Names, "q", "r", "rat")
	if res.CallCount != 3 {
		t.Fatalf("expected call count 3, got %d", res.CallCount)
	}
	if g.dispatched[0] != "q" {
		t.Fatalf("expected q to be dispatched first, got %v", g.dispatched)
	}
}

func TestCrawlMalformedResultAddsNothing(t *testing.T) {
	c, g := newGraphCrawler(t, map[string][]string{
		"m": {"should-not-appear"},
		"n": {},
	}, "m", "n")
	g.malformed["m"] = true

	res := c.Run(context.Background())

	assertNames(t, res.Names, "m", "n")
	if res.CallCount != 2 {
		t.Fatalf("expected call count 2, got %d", res.CallCount)
	}
}

func TestCrawlDeduplicatesPendingAndVisited(t *testing.T) {
	c, g := newGraphCrawler(t, map[string][]string{
		"a":  {"a", "ab", "ac", "ab"},
		"b":  {"ab", "b", "a"},
		"ab": {"ac", "a"},
		"ac": {"ab"},
	}, "a", "b")

	res := c.Run(context.Background())

	assertNames(t, res.Names, "a", "ab", "ac", "b")
	if res.CallCount != 4 || len(g.dispatched) != 4 {
		t.Fatalf("expected 4 dispatches, got %d (%v)", res.CallCount, g.dispatched)
	}
}

func TestCrawlCallCountMatchesIterations(t *testing.T) {
	graph := map[string][]string{}
	for _, s := range DefaultSeeds() {
		graph[s] = []string{s + s}
	}
	c, g := newGraphCrawler(t, graph)

	res := c.Run(context.Background())

	if len(res.Names) != 52 {
		t.Fatalf("expected 52 names, got %d", len(res.Names))
	}
	if res.CallCount != int64(len(g.dispatched)) || res.CallCount != 52 {
		t.Fatalf("call count %d does not match %d iterations", res.CallCount, len(g.dispatched))
	}
}

func TestCrawlStopsWhenCancelled(t *testing.T) {
	c, g := newGraphCrawler(t, map[string][]string{"a": {"ab"}}, "a")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := c.Run(ctx)

	if len(g.dispatched) != 0 || res.CallCount != 0 || len(res.Names) != 0 {
		t.Fatalf("expected nothing dispatched, got %v", g.dispatched)
	}
}

func TestDefaultSeeds(t *testing.T) {
	seeds := DefaultSeeds()
	if len(seeds) != 26 || seeds[0] != "a" || seeds[25] != "z" {
		t.Fatalf("unexpected seeds %v", seeds)
	}
}
