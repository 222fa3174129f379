package pagination

import (
	"log/slog"
	"time"
)

// LogPage logs a merged page with structured fields.
func LogPage(logger *slog.Logger, fetch string, params Params, info PageInfo, duration time.Duration) {
	logger.Debug("page merged",
		slog.String("fetch", fetch),
		slog.Int("page", params.Page),
		slog.Int("limit", params.Limit),
		slog.Int("result_count", info.ResultCount),
		slog.Int("total_pages", info.TotalPageCount),
		slog.Int("offset", info.CurrentOffset),
		slog.Int64("duration_ms", duration.Milliseconds()))
}

// LogError logs a failed page request with structured fields.
func LogError(logger *slog.Logger, fetch string, params Params, err error, errorType string) {
	logger.Warn("page request failed",
		slog.String("fetch", fetch),
		slog.Int("page", params.Page),
		slog.Int("limit", params.Limit),
		slog.String("error_type", errorType),
		slog.Any("error", err))
}
