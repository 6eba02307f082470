package cache

import (
	"context"
	"time"

	"mothercare/backend/internal/domain"
)

// ReportCache holds closed-session reports. Reports never change after they
// are written, so entries only expire to bound memory.
type ReportCache interface {
	Get(ctx context.Context, line domain.Line, sessionID string) (*domain.Report, bool, error)
	Set(ctx context.Context, report domain.Report, ttl time.Duration) error
}

type NoopReportCache struct{}

func (NoopReportCache) Get(_ context.Context, _ domain.Line, _ string) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (NoopReportCache) Set(_ context.Context, _ domain.Report, _ time.Duration) error {
	return nil
}

func reportKey(line domain.Line, sessionID string) string {
	return "report:" + string(line) + ":" + sessionID
}
