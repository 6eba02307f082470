package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/report"
)

// SessionPartitions groups every sale of the line by accounting session.
func (s *Service) SessionPartitions(ctx context.Context, line domain.Line) ([]report.Partition, error) {
	sessions, err := s.ListSessions(ctx, line)
	if err != nil {
		return nil, err
	}
	sales, err := s.ListSales(ctx, line, domain.SaleFilter{})
	if err != nil {
		return nil, err
	}
	return report.BySession(sessions, sales), nil
}

// DatePartitions groups the line's sales by calendar day in the service
// location, optionally limited to r.
func (s *Service) DatePartitions(ctx context.Context, line domain.Line, r report.Range) ([]report.Partition, error) {
	sales, err := s.ListSales(ctx, line, domain.SaleFilter{From: r.From, To: r.To})
	if err != nil {
		return nil, err
	}
	return report.ByDate(sales, s.location), nil
}

func (s *Service) Summarize(ctx context.Context, line domain.Line, r report.Range) (report.Summary, error) {
	sales, err := s.ListSales(ctx, line, domain.SaleFilter{From: r.From, To: r.To})
	if err != nil {
		return report.Summary{}, err
	}
	items, err := s.ListItems(ctx, line)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(line, sales, items, r), nil
}

// ResolveRange turns a preset name into a range. An empty name means all
// time.
func (s *Service) ResolveRange(preset string) (report.Range, error) {
	preset = strings.ToLower(strings.TrimSpace(preset))
	if preset == "" {
		return report.Range{}, nil
	}
	r, err := report.Preset(preset, s.now(), s.location)
	if err != nil {
		return report.Range{}, validation(err.Error())
	}
	return r, nil
}

// Overview summarizes every line over r. Lines are loaded concurrently.
func (s *Service) Overview(ctx context.Context, r report.Range) (report.Overview, error) {
	lines := domain.Lines()
	summaries := make([]report.Summary, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	for i, line := range lines {
		g.Go(func() error {
			summary, err := s.Summarize(gctx, line, r)
			if err != nil {
				return err
			}
			summaries[i] = summary
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report.Overview{}, err
	}
	return report.Combine(r, summaries...), nil
}

// ListReports returns the stored closure reports, newest first.
func (s *Service) ListReports(ctx context.Context, line domain.Line) ([]domain.Report, error) {
	if err := validLine(line); err != nil {
		return nil, err
	}
	reports, err := s.repo.ListReports(ctx, line)
	if err != nil {
		return nil, fromStore(err, "report")
	}
	return reports, nil
}

// GetReport returns the report written when sessionID was closed. Reports
// are immutable, so a cached copy is always current.
func (s *Service) GetReport(ctx context.Context, line domain.Line, sessionID string) (domain.Report, error) {
	if err := validLine(line); err != nil {
		return domain.Report{}, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Report{}, validation("session id is required")
	}

	if cached, ok, err := s.reports.Get(ctx, line, sessionID); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		log.Warn().Err(err).Str("line", string(line)).Str("session_id", sessionID).Msg("read cached report")
	}

	stored, err := s.repo.GetReportBySession(ctx, line, sessionID)
	if err != nil {
		return domain.Report{}, fromStore(err, "report")
	}
	if err := s.reports.Set(ctx, *stored, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("line", string(line)).Str("session_id", sessionID).Msg("cache report")
	}
	return *stored, nil
}
