package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/IliaW/autocomplete-crawler/internal/model"
	jsoniter "github.com/json-iterator/go"
)

const timestampLayout = "20060102_150405"

// Summarize logs the run totals and the per-endpoint success rate in endpoint order.
func Summarize(res *model.CollectionResult, endpointOrder []string) {
	slog.Info("collection finished!",
		slog.Int("unique names", len(res.Names)),
		slog.Int64("api calls", res.CallCount),
		slog.String("duration", fmt.Sprintf("%.2fs", res.Duration)))

	for _, id := range endpointOrder {
		st := res.EndpointMetrics[id]
		slog.Info("endpoint metrics.", slog.String("endpoint", id),
			slog.Int64("calls", st.Calls),
			slog.Int64("errors", st.Errors),
			slog.String("success", fmt.Sprintf("%.1f%%", st.SuccessRate())))
	}
}

// FileName is <prefix>_YYYYMMDD_HHMMSS.json with the timestamp in UTC, so the local file and
// the uploaded copy of one run share a name.
func FileName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.json", prefix, at.UTC().Format(timestampLayout))
}

func Marshal(res *model.CollectionResult) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(res, "", "  ")
}

// WriteFile writes the result document into dir and returns the file path.
func WriteFile(res *model.CollectionResult, dir string, prefix string, at time.Time) (string, error) {
	body, err := Marshal(res)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	p := filepath.Join(dir, FileName(prefix, at))
	if err := os.WriteFile(p, body, 0o644); err != nil {
		return "", fmt.Errorf("write result: %w", err)
	}
	slog.Info("data exported.", slog.String("file", p))

	return p, nil
}
