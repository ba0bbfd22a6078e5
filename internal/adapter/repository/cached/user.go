package cached

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-crud-service/internal/adapter/cache"
	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	"user-crud-service/pkg/logger"
)

// UserRepository decorates a user.Repository with a read-through cache for
// single-user lookups. Writes go to the wrapped repository first and then
// invalidate the cached entry; List always reads the wrapped repository.
type UserRepository struct {
	next  user.Repository
	cache cache.UserCache
	log   *zap.Logger
	group singleflight.Group
	fills fillGuard
}

var _ user.Repository = (*UserRepository)(nil)

// NewUserRepository wraps next with the given cache.
func NewUserRepository(next user.Repository, c cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		next:  next,
		cache: c,
		log:   log,
	}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	return r.next.Create(ctx, u)
}

// GetByID serves from the cache when possible. Concurrent misses for the same
// ID share one database read, and a read that overlaps an Update or Delete of
// the same ID is returned without being cached.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	log := logger.WithContext(ctx, r.log)

	if u, err := r.cache.Get(ctx, id); err != nil {
		log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
	} else if u != nil {
		return u, nil
	}

	result, err, shared := r.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		gen := r.fills.begin(id)
		u, err := r.next.GetByID(ctx, id)
		if err != nil {
			r.fills.finish(id, gen, nil)
			return nil, err
		}
		r.fills.finish(id, gen, func() {
			if err := r.cache.Set(ctx, u); err != nil {
				log.Warn("failed to cache user", zap.Int64("id", id), zap.Error(err))
			}
		})
		return u, nil
	})
	if err != nil {
		return nil, err
	}

	u := result.(*domain.User)
	if shared {
		cp := *u
		return &cp, nil
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id int64, patch domain.Patch) (*domain.User, error) {
	u, err := r.next.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, id)
	return u, nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *UserRepository) List(ctx context.Context, f domain.Filter) ([]domain.User, int64, error) {
	return r.next.List(ctx, f)
}

// fillGuard tracks database reads that are about to populate the cache.
// A write bumps the generation of any in-flight read for the same id, and
// the read then skips its cache write so it cannot resurrect an older row.
type fillGuard struct {
	mu       sync.Mutex
	inflight map[int64]*fill
}

type fill struct {
	gen     uint64
	readers int
}

func (g *fillGuard) begin(id int64) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inflight == nil {
		g.inflight = make(map[int64]*fill)
	}
	f, ok := g.inflight[id]
	if !ok {
		f = &fill{}
		g.inflight[id] = f
	}
	f.readers++
	return f.gen
}

// finish runs store if no write happened since begin returned gen.
func (g *fillGuard) finish(id int64, gen uint64, store func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	f := g.inflight[id]
	if store != nil && f.gen == gen {
		store()
	}
	f.readers--
	if f.readers == 0 {
		delete(g.inflight, id)
	}
}

func (g *fillGuard) bump(id int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if f, ok := g.inflight[id]; ok {
		f.gen++
	}
}

// invalidate drops the cached entry. A failure only costs staleness up to the
// cache TTL, so it is logged rather than returned.
func (r *UserRepository) invalidate(ctx context.Context, id int64) {
	r.fills.bump(id)
	if err := r.cache.Delete(ctx, id); err != nil {
		logger.WithContext(ctx, r.log).Warn("failed to invalidate cached user", zap.Int64("id", id), zap.Error(err))
	}
}
