package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	"github.com/IliaW/autocomplete-crawler/internal/session"
	"github.com/IliaW/autocomplete-crawler/internal/telemetry"
	jsoniter "github.com/json-iterator/go"
)

const previewLen = 100

// Dispatcher delivers one search term to the first endpoint that answers 200, trying each
// endpoint at most once per term in rotation order.
type Dispatcher struct {
	session *session.Session
	fetcher Fetcher
	pacer   *Pacer
	metrics *telemetry.DispatchMetrics
}

func NewDispatcher(s *session.Session, fetcher Fetcher, pacer *Pacer,
	metrics *telemetry.DispatchMetrics) *Dispatcher {
	if metrics == nil {
		metrics = telemetry.NopDispatchMetrics()
	}
	return &Dispatcher{
		session: s,
		fetcher: fetcher,
		pacer:   pacer,
		metrics: metrics,
	}
}

// Dispatch returns Success, MalformedResult or NoData. Failures never escape as errors.
// A 200 whose body is not JSON counts as a failed attempt and the next endpoint is tried; valid JSON
// without a results list ends the dispatch as MalformedResult.
func (d *Dispatcher) Dispatch(ctx context.Context, term model.SearchTerm) model.Outcome {
	d.session.Metrics.RecordCall()
	d.metrics.DispatchCnt(1)

	var errs []error
	undecodable := false
	for range d.session.Rotator.Len() {
		ep := d.session.Rotator.Next()
		d.session.Metrics.RecordAttempt(ep)
		d.metrics.AttemptCnt(ep.ID)

		outcome := d.attempt(ctx, ep, term)
		switch {
		case outcome.Kind == model.Success:
			return outcome
		case outcome.Kind == model.MalformedResult && !errors.Is(outcome.Err, ErrUndecodable):
			return outcome
		case outcome.Kind == model.MalformedResult:
			undecodable = true
			slog.Warn("response body is not json. moving to next endpoint...", slog.String("endpoint", ep.ID),
				slog.String("term", term))
		case outcome.Kind == model.RateLimited:
			slog.Warn("hit rate limit. switching endpoints...", slog.String("endpoint", ep.ID),
				slog.String("term", term))
		default:
			slog.Warn("request failed. moving to next endpoint...", slog.String("endpoint", ep.ID),
				slog.String("term", term), slog.String("err", outcome.Err.Error()))
		}
		d.session.Metrics.RecordError(ep)
		d.metrics.ErrorCnt(ep.ID, outcome.Kind.String())
		errs = append(errs, fmt.Errorf("%s: %w", ep.ID, outcome.Err))
	}

	slog.Warn("all endpoints exhausted.", slog.String("term", term))
	if undecodable {
		return model.Outcome{
			Kind: model.MalformedResult,
			Err:  fmt.Errorf("no usable reply for %q: %w", term, errors.Join(errs...)),
		}
	}
	return model.Outcome{
		Kind: model.NoData,
		Err:  fmt.Errorf("%w for %q: %w", ErrNoData, term, errors.Join(errs...)),
	}
}

func (d *Dispatcher) attempt(ctx context.Context, ep session.Endpoint, term model.SearchTerm) model.Outcome {
	outcome := model.Outcome{Endpoint: ep.ID}

	if err := d.pacer.Wait(ctx, ep.ID); err != nil {
		outcome.Kind = model.NetworkError
		outcome.Err = fmt.Errorf("pacer interrupted: %w", err)
		return outcome
	}

	reply, err := d.fetcher.Fetch(ep.Address, term)
	if err != nil {
		outcome.Kind = model.NetworkError
		outcome.Err = err
		return outcome
	}
	outcome.StatusCode = reply.StatusCode
	slog.Debug("endpoint replied.", slog.String("term", term), slog.String("endpoint", ep.ID),
		slog.Int("status_code", reply.StatusCode), slog.Duration("duration", reply.Latency),
		slog.String("data", preview(reply.Body)))

	switch reply.StatusCode {
	case http.StatusTooManyRequests:
		outcome.Kind = model.RateLimited
		outcome.Err = ErrRateLimited
	case http.StatusOK:
		results, err := DecodeResults(reply.Body)
		if err != nil {
			outcome.Kind = model.MalformedResult
			outcome.Err = err
			return outcome
		}
		outcome.Kind = model.Success
		outcome.Results = results
	default:
		outcome.Kind = model.HTTPError
		outcome.Err = &StatusError{Code: reply.StatusCode}
	}

	return outcome
}

type autocompleteResponse struct {
	Results *[]any `json:"results"`
}

// DecodeResults reads the "results" array of a JSON object body. Non-string and empty entries are
// skipped. A body that is not JSON at all is ErrUndecodable; valid JSON that is not an object
// with a results array is ErrMalformed.
func DecodeResults(body []byte) ([]model.SearchTerm, error) {
	if !jsoniter.Valid(body) {
		return nil, ErrUndecodable
	}
	var resp autocompleteResponse
	if err := jsoniter.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if resp.Results == nil {
		return nil, ErrMalformed
	}
	results := make([]model.SearchTerm, 0, len(*resp.Results))
	for _, r := range *resp.Results {
		if s, ok := r.(string); ok && s != "" {
			results = append(results, s)
		}
	}
	return results, nil
}

func preview(body []byte) string {
	if len(body) > previewLen {
		return string(body[:previewLen]) + "..."
	}
	return string(body)
}
