package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"mothercare/backend/internal/cache"
	"mothercare/backend/internal/domain"
	"mothercare/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// SystemContext marks ctx as acting on behalf of the process itself.
func SystemContext(ctx context.Context) context.Context {
	return WithActor(ctx, domain.Actor{Username: "system", Role: domain.RoleSystem})
}

type Options struct {
	Authorizer     Authorizer
	ReportCache    cache.ReportCache
	ReportCacheTTL time.Duration
	// Location decides calendar days for date partitions and range presets.
	Location *time.Location
	Now      func() time.Time
}

type Service struct {
	repo     store.Repository
	authz    Authorizer
	reports  cache.ReportCache
	cacheTTL time.Duration
	location *time.Location
	now      func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Authorizer == nil {
		opts.Authorizer = NewRoleAuthorizer(nil)
	}
	if opts.ReportCache == nil {
		opts.ReportCache = cache.NoopReportCache{}
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = time.Hour
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:     repo,
		authz:    opts.Authorizer,
		reports:  opts.ReportCache,
		cacheTTL: opts.ReportCacheTTL,
		location: opts.Location,
		now:      opts.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.location
}

func validLine(line domain.Line) error {
	if !line.Valid() {
		return validation("unknown line " + string(line))
	}
	return nil
}

func (s *Service) audit(ctx context.Context, action string, line domain.Line, entity string, entityID string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: domain.RoleSystem}
	}
	log.Info().
		Str("action", action).
		Str("line", string(line)).
		Str("entity", entity).
		Str("entity_id", entityID).
		Str("actor", actor.Username).
		Str("role", actor.Role).
		Msg("audit")
}
