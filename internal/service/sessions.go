package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"mothercare/backend/internal/domain"
)

// OpenFirstSession opens the line's first accounting session. When a session
// already exists it is returned unchanged and created is false.
func (s *Service) OpenFirstSession(ctx context.Context, line domain.Line) (domain.Session, bool, error) {
	if err := validLine(line); err != nil {
		return domain.Session{}, false, err
	}
	if _, err := s.authorize(ctx, CapabilityManageSession); err != nil {
		return domain.Session{}, false, err
	}

	opened, created, err := s.repo.OpenFirstSession(ctx, line, s.now())
	if err != nil {
		return domain.Session{}, false, fromStore(err, "session")
	}
	if created {
		s.audit(ctx, "session_open", line, "session", opened.ID)
	}
	return *opened, created, nil
}

// CloseAndReopen closes the current session, writes its report when it had
// any sales, and opens the next session. All three happen together.
func (s *Service) CloseAndReopen(ctx context.Context, line domain.Line, notes string) (domain.SessionClosure, error) {
	if err := validLine(line); err != nil {
		return domain.SessionClosure{}, err
	}
	if _, err := s.authorize(ctx, CapabilityManageSession); err != nil {
		return domain.SessionClosure{}, err
	}

	closure, err := s.repo.CloseSession(ctx, line, strings.TrimSpace(notes), s.now())
	if err != nil {
		return domain.SessionClosure{}, fromStore(err, "session")
	}

	if closure.Report != nil {
		if err := s.reports.Set(ctx, *closure.Report, s.cacheTTL); err != nil {
			log.Warn().Err(err).Str("line", string(line)).Str("session_id", closure.Closed.ID).Msg("cache report")
		}
		s.audit(ctx, "report_create", line, "report", closure.Report.ID)
	}
	s.audit(ctx, "session_close", line, "session", closure.Closed.ID)
	s.audit(ctx, "session_open", line, "session", closure.Opened.ID)
	return *closure, nil
}

func (s *Service) CurrentSession(ctx context.Context, line domain.Line) (domain.Session, error) {
	if err := validLine(line); err != nil {
		return domain.Session{}, err
	}
	session, err := s.repo.CurrentSession(ctx, line)
	if err != nil {
		return domain.Session{}, fromStore(err, "session")
	}
	return *session, nil
}

// ListSessions returns sessions most recently opened first.
func (s *Service) ListSessions(ctx context.Context, line domain.Line) ([]domain.Session, error) {
	if err := validLine(line); err != nil {
		return nil, err
	}
	sessions, err := s.repo.ListSessions(ctx, line)
	if err != nil {
		return nil, fromStore(err, "session")
	}
	return sessions, nil
}
