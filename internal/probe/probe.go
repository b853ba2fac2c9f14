package probe

import (
	"log/slog"

	"github.com/IliaW/autocomplete-crawler/internal/dispatch"
	"github.com/IliaW/autocomplete-crawler/internal/session"
)

const probeTerm = "a"

type Status struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (s Status) Available() bool {
	return s.Err == nil && s.StatusCode == 200
}

// Endpoints sends one test query to every endpoint and logs what came back. It does not touch
// the rotation cursor or the session metrics.
func Endpoints(fetcher dispatch.Fetcher, endpoints []session.Endpoint) []Status {
	slog.Info("checking endpoint availability with a test query...")
	statuses := make([]Status, 0, len(endpoints))
	for _, ep := range endpoints {
		st := Status{Endpoint: ep.ID}
		reply, err := fetcher.Fetch(ep.Address, probeTerm)
		if err != nil {
			st.Err = err
			slog.Warn("endpoint failed.", slog.String("endpoint", ep.ID), slog.String("err", err.Error()))
		} else {
			st.StatusCode = reply.StatusCode
			slog.Info("endpoint replied.", slog.String("endpoint", ep.ID), slog.Int("status_code", reply.StatusCode))
		}
		statuses = append(statuses, st)
	}
	return statuses
}
