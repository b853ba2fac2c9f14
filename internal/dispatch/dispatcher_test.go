package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/session"
)

const (
	e1 = "http://svc.local/v1/autocomplete"
	e2 = "http://svc.local/v2/autocomplete"
	e3 = "http://svc.local/v3/autocomplete"
)

var errTimeout = errors.New("Client.Timeout exceeded while awaiting headers")

type scriptedReply struct {
	status int
	body   string
	err    error
}

// fakeFetcher answers per endpoint address; missing addresses fail with errTimeout.
type fakeFetcher struct {
	replies map[string]scriptedReply
	calls   []string
}

func (f *fakeFetcher) Fetch(address string, term string) (*Reply, error) {
	f.calls = append(f.calls, address+"|"+term)
	r, ok := f.replies[address]
	if !ok {
		return nil, errTimeout
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Reply{StatusCode: r.status, Body: []byte(r.body)}, nil
}

func newTestDispatcher(t *testing.T, replies map[string]scriptedReply) (*Dispatcher, *session.Session, *fakeFetcher) {
	t.Helper()
	s, err := session.New([]string{e1, e2, e3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := &fakeFetcher{replies: replies}
	return NewDispatcher(s, f, nil, nil), s, f
}

func assertStats(t *testing.T, s *session.Session, id string, calls, errs int64) {
	t.Helper()
	got := s.Metrics.Stats(id)
	if got.Calls != calls || got.Errors != errs {
		t.Fatalf("%s: expected {calls:%d errors:%d}, got %+v", id, calls, errs, got)
	}
}

func TestDispatchFailsOverOnRateLimit(t *testing.T) {
	d, s, _ := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 429},
		e2: {status: 429},
		e3: {status: 200, body: `{"results": ["ant","apple"]}`},
	})

	out := d.Dispatch(context.Background(), "a")

	if out.Kind != model.Success {
		t.Fatalf("expected success, got %s (%v)", out.Kind, out.Err)
	}
	if len(out.Results) != 2 || out.Results[0] != "ant" || out.Results[1] != "apple" {
		t.Fatalf("unexpected results %v", out.Results)
	}
	if out.Endpoint != "v3" || out.StatusCode != 200 {
		t.Fatalf("expected v3/200, got %s/%d", out.Endpoint, out.StatusCode)
	}
	assertStats(t, s, "v1", 1, 1)
	assertStats(t, s, "v2", 1, 1)
	assertStats(t, s, "v3", 1, 0)
	if s.Metrics.CallCount() != 1 {
		t.Fatalf("expected 1 call, got %d", s.Metrics.CallCount())
	}
}

func TestDispatchAllTimeoutsIsNoData(t *testing.T) {
	d, s, f := newTestDispatcher(t, map[string]scriptedReply{})

	out := d.Dispatch(context.Background(), "q")

	if out.Kind != model.NoData {
		t.Fatalf("expected no data, got %s", out.Kind)
	}
	if !errors.Is(out.Err, ErrNoData) || !errors.Is(out.Err, errTimeout) {
		t.Fatalf("expected joined no-data/timeout error, got %v", out.Err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(f.calls))
	}
	for _, id := range []string{"v1", "v2", "v3"} {
		assertStats(t, s, id, 1, 1)
	}
	if s.Metrics.CallCount() != 1 {
		t.Fatalf("expected call count 1, got %d", s.Metrics.CallCount())
	}
}

func TestDispatchShortCircuitsOnFirstSuccess(t *testing.T) {
	d, s, f := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 200, body: `{"results": []}`},
	})

	out := d.Dispatch(context.Background(), "zz")

	if out.Kind != model.Success || len(out.Results) != 0 {
		t.Fatalf("expected empty success, got %s %v", out.Kind, out.Results)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected a single attempt, got %v", f.calls)
	}
	assertStats(t, s, "v1", 1, 0)
	assertStats(t, s, "v2", 0, 0)
}

func TestDispatchOtherStatusIsFailover(t *testing.T) {
	d, s, _ := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 500},
		e2: {status: 200, body: `{"results": ["b"]}`},
	})

	out := d.Dispatch(context.Background(), "b")

	if out.Kind != model.Success {
		t.Fatalf("expected success, got %s", out.Kind)
	}
	assertStats(t, s, "v1", 1, 1)
	assertStats(t, s, "v2", 1, 0)
}

func TestDispatchMalformedResult(t *testing.T) {
	bodies := []string{`[1, 2, 3]`, `{"count": 3}`, `{"results": "ant"}`, `null`}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			d, s, f := newTestDispatcher(t, map[string]scriptedReply{e1: {status: 200, body: body}})

			out := d.Dispatch(context.Background(), "m")

			if out.Kind != model.MalformedResult {
				t.Fatalf("expected malformed result, got %s", out.Kind)
			}
			if !errors.Is(out.Err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", out.Err)
			}
			if len(out.Results) != 0 {
				t.Fatalf("expected no results, got %v", out.Results)
			}
			if len(f.calls) != 1 {
				t.Fatalf("expected no failover after a 200, got %v", f.calls)
			}
			assertStats(t, s, "v1", 1, 0)
		})
	}
}

func TestDispatchNonJSONBodyFailsOver(t *testing.T) {
	d, s, f := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 200, body: `<html>gateway hiccup</html>`},
		e2: {status: 200, body: `{"results": ["ant"]}`},
	})

	out := d.Dispatch(context.Background(), "a")

	if out.Kind != model.Success {
		t.Fatalf("expected success, got %s (%v)", out.Kind, out.Err)
	}
	if len(out.Results) != 1 || out.Results[0] != "ant" || out.Endpoint != "v2" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(f.calls) != 2 {
		t.Fatalf("expected 2 attempts, got %v", f.calls)
	}
	assertStats(t, s, "v1", 1, 1)
	assertStats(t, s, "v2", 1, 0)
	assertStats(t, s, "v3", 0, 0)
}

func TestDispatchNonJSONEverywhereIsMalformed(t *testing.T) {
	d, s, f := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 200, body: `not json`},
		e2: {status: 429},
		e3: {status: 200, body: ``},
	})

	out := d.Dispatch(context.Background(), "m")

	if out.Kind != model.MalformedResult {
		t.Fatalf("expected malformed result, got %s", out.Kind)
	}
	if !errors.Is(out.Err, ErrUndecodable) || !errors.Is(out.Err, ErrRateLimited) {
		t.Fatalf("expected joined attempt errors, got %v", out.Err)
	}
	if len(f.calls) != 3 {
		t.Fatalf("expected 3 attempts, got %v", f.calls)
	}
	for _, id := range []string{"v1", "v2", "v3"} {
		assertStats(t, s, id, 1, 1)
	}
	if s.Metrics.CallCount() != 1 {
		t.Fatalf("expected call count 1, got %d", s.Metrics.CallCount())
	}
}

func TestRotationCursorPersistsAcrossTerms(t *testing.T) {
	d, _, f := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 200, body: `{"results": []}`},
		e2: {status: 200, body: `{"results": []}`},
		e3: {status: 200, body: `{"results": []}`},
	})

	for _, term := range []string{"a", "b", "c", "d"} {
		d.Dispatch(context.Background(), term)
	}

	want := []string{e1 + "|a", e2 + "|b", e3 + "|c", e1 + "|d"}
	for i := range want {
		if f.calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, f.calls)
		}
	}
}

func TestErrorsNeverExceedUsage(t *testing.T) {
	d, s, _ := newTestDispatcher(t, map[string]scriptedReply{
		e1: {status: 429},
		e2: {status: 503},
		e3: {status: 200, body: `{"results": ["x"]}`},
	})
	for _, term := range []string{"a", "b", "c", "d", "e"} {
		d.Dispatch(context.Background(), term)
	}
	if s.Metrics.CallCount() != 5 {
		t.Fatalf("expected 5 calls, got %d", s.Metrics.CallCount())
	}
	for id, st := range s.Metrics.Snapshot() {
		if st.Errors < 0 || st.Errors > st.Calls {
			t.Fatalf("%s: errors %d out of [0, %d]", id, st.Errors, st.Calls)
		}
		if r := st.SuccessRate(); r < 0 || r > 100 {
			t.Fatalf("%s: success rate %v out of range", id, r)
		}
	}
}

func TestDecodeResults(t *testing.T) {
	got, err := DecodeResults([]byte(`{"version":"v1","count":4,"results":["ant",1,"","apple",null]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "ant" || got[1] != "apple" {
		t.Fatalf("unexpected results %v", got)
	}
}

func TestDecodeResultsErrors(t *testing.T) {
	tests := []struct {
		body string
		want error
	}{
		{body: `<html>oops</html>`, want: ErrUndecodable},
		{body: ``, want: ErrUndecodable},
		{body: `{"results": [`, want: ErrUndecodable},
		{body: `{"count": 1}`, want: ErrMalformed},
		{body: `["ant"]`, want: ErrMalformed},
		{body: `{"results": "ant"}`, want: ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			_, err := DecodeResults([]byte(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestQueryURL(t *testing.T) {
	got, err := QueryURL("http://svc.local/v1/autocomplete?limit=10", "a b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://svc.local/v1/autocomplete?limit=10&query=a+b" {
		t.Fatalf("unexpected url %s", got)
	}
}
