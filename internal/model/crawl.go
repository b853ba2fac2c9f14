package model

import (
	"sort"
	"time"
)

// SearchTerm is both the query parameter sent to an endpoint and the dedup key of the crawl.
type SearchTerm = string

type OutcomeKind int

const (
	Success OutcomeKind = iota
	RateLimited
	HTTPError
	NetworkError
	NoData
	MalformedResult
)

func (k OutcomeKind) String() string {
	return [...]string{"success", "rate limited", "http error", "network error", "no data",
		"malformed result"}[k]
}

// Outcome is the classified result of one attempt or of a whole dispatch.
// A dispatch only ever returns Success, MalformedResult or NoData.
type Outcome struct {
	Kind       OutcomeKind
	Results    []SearchTerm
	Endpoint   string
	StatusCode int
	Err        error
}

type EndpointStats struct {
	Calls  int64 `json:"calls"`
	Errors int64 `json:"errors"`
}

// SuccessRate is (calls-errors)/calls*100, or 0 when the endpoint was never used.
func (s EndpointStats) SuccessRate() float64 {
	if s.Calls <= 0 {
		return 0
	}
	return float64(s.Calls-s.Errors) / float64(s.Calls) * 100
}

type CollectionResult struct {
	Names           []SearchTerm             `json:"names"`
	Duration        float64                  `json:"duration"` // in seconds
	CallCount       int64                    `json:"call_count"`
	EndpointMetrics map[string]EndpointStats `json:"endpoint_metrics"`

	RunID     string    `json:"-"`
	StartedAt time.Time `json:"-"`
}

func NewCollectionResult(visited map[SearchTerm]struct{}, elapsed time.Duration, callCount int64,
	endpoints map[string]EndpointStats) *CollectionResult {
	names := make([]SearchTerm, 0, len(visited))
	for name := range visited {
		names = append(names, name)
	}
	sort.Strings(names)

	return &CollectionResult{
		Names:           names,
		Duration:        elapsed.Seconds(),
		CallCount:       callCount,
		EndpointMetrics: endpoints,
	}
}
