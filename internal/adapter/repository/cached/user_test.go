package cached

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/adapter/cache"
	domain "user-crud-service/internal/domain/user"
	apperrors "user-crud-service/pkg/errors"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepository) Update(ctx context.Context, id int64, patch domain.Patch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepository) List(ctx context.Context, f domain.Filter) ([]domain.User, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.User), args.Get(1).(int64), args.Error(2)
}

func setup(t *testing.T) (*UserRepository, *mockRepository, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := zaptest.NewLogger(t)
	next := new(mockRepository)
	repo := NewUserRepository(next, cache.NewRedisUserCache(client, time.Minute, log), log)
	return repo, next, mr
}

func TestUserRepository_GetByID_ReadThrough(t *testing.T) {
	repo, next, mr := setup(t)
	ctx := context.Background()
	alice := &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"}

	next.On("GetByID", mock.Anything, int64(1)).Return(alice, nil).Once()

	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *alice, *got)
	assert.True(t, mr.Exists(cache.Key(1)))

	// Second read is served from Redis
	got, err = repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, *alice, *got)

	next.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestUserRepository_GetByID_NotFoundIsNotCached(t *testing.T) {
	repo, next, mr := setup(t)

	next.On("GetByID", mock.Anything, int64(9)).
		Return(nil, apperrors.NewNotFoundError("user", "user not found"))

	_, err := repo.GetByID(context.Background(), 9)
	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, mr.Exists(cache.Key(9)))
}

func TestUserRepository_GetByID_CacheDown(t *testing.T) {
	repo, next, mr := setup(t)
	alice := &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	mr.Close()

	next.On("GetByID", mock.Anything, int64(1)).Return(alice, nil)

	got, err := repo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, *alice, *got)
}

func TestUserRepository_GetByID_ConcurrentMisses(t *testing.T) {
	repo, next, _ := setup(t)
	alice := &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"}

	release := make(chan struct{})
	next.On("GetByID", mock.Anything, int64(1)).
		Run(func(mock.Arguments) { <-release }).
		Return(alice, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*domain.User, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := repo.GetByID(context.Background(), 1)
			assert.NoError(t, err)
			results[i] = u
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, u := range results {
		require.NotNil(t, u)
		assert.Equal(t, *alice, *u)
	}
	assert.Less(t, len(next.Calls), callers)
}

// blockRead makes the next GetByID of id return u only after release is closed.
// started receives once the read has reached the database.
func blockRead(next *mockRepository, id int64, u *domain.User) (started chan struct{}, release chan struct{}) {
	started = make(chan struct{}, 1)
	release = make(chan struct{})
	next.On("GetByID", mock.Anything, id).
		Run(func(mock.Arguments) {
			started <- struct{}{}
			<-release
		}).
		Return(u, nil).
		Once()
	return started, release
}

func TestUserRepository_UpdateDuringReadIsNotCached(t *testing.T) {
	repo, next, mr := setup(t)
	ctx := context.Background()
	name := "New"
	patch := domain.Patch{Name: &name}
	updated := &domain.User{ID: 1, Name: "New", Email: "alice@example.com"}

	started, release := blockRead(next, 1, &domain.User{ID: 1, Name: "Old", Email: "alice@example.com"})
	next.On("Update", mock.Anything, int64(1), patch).Return(updated, nil)

	done := make(chan *domain.User)
	go func() {
		u, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		done <- u
	}()
	<-started

	_, err := repo.Update(ctx, 1, patch)
	require.NoError(t, err)
	close(release)
	<-done

	assert.False(t, mr.Exists(cache.Key(1)))

	next.On("GetByID", mock.Anything, int64(1)).Return(updated, nil).Once()
	got, err := repo.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Empty(t, repo.fills.inflight)
}

func TestUserRepository_DeleteDuringReadIsNotCached(t *testing.T) {
	repo, next, mr := setup(t)
	ctx := context.Background()

	started, release := blockRead(next, 1, &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"})
	next.On("Delete", mock.Anything, int64(1)).Return(nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
	}()
	<-started

	require.NoError(t, repo.Delete(ctx, 1))
	close(release)
	<-done

	assert.False(t, mr.Exists(cache.Key(1)))

	next.On("GetByID", mock.Anything, int64(1)).
		Return(nil, apperrors.NewNotFoundError("user", "user not found")).Once()
	_, err := repo.GetByID(ctx, 1)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUserRepository_UpdateInvalidates(t *testing.T) {
	repo, next, mr := setup(t)
	ctx := context.Background()
	name := "Alicia"
	patch := domain.Patch{Name: &name}

	require.NoError(t, mr.Set(cache.Key(1), `{"id":1,"name":"Alice","email":"alice@example.com"}`))
	next.On("Update", mock.Anything, int64(1), patch).
		Return(&domain.User{ID: 1, Name: "Alicia", Email: "alice@example.com"}, nil)

	u, err := repo.Update(ctx, 1, patch)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.Name)
	assert.False(t, mr.Exists(cache.Key(1)))
}

func TestUserRepository_FailedUpdateKeepsEntry(t *testing.T) {
	repo, next, mr := setup(t)
	email := "bob@example.com"
	patch := domain.Patch{Email: &email}

	require.NoError(t, mr.Set(cache.Key(1), `{"id":1,"name":"Alice","email":"alice@example.com"}`))
	next.On("Update", mock.Anything, int64(1), patch).
		Return(nil, apperrors.NewAlreadyExistsError("user", "email already exists"))

	_, err := repo.Update(context.Background(), 1, patch)
	assert.True(t, apperrors.IsAlreadyExists(err))
	assert.True(t, mr.Exists(cache.Key(1)))
}

func TestUserRepository_DeleteInvalidates(t *testing.T) {
	repo, next, mr := setup(t)

	require.NoError(t, mr.Set(cache.Key(1), `{"id":1,"name":"Alice","email":"alice@example.com"}`))
	next.On("Delete", mock.Anything, int64(1)).Return(nil)

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.False(t, mr.Exists(cache.Key(1)))
}

func TestUserRepository_PassThrough(t *testing.T) {
	repo, next, _ := setup(t)
	ctx := context.Background()
	in := &domain.User{Name: "Alice", Email: "alice@example.com"}
	out := &domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"}
	filter := domain.Filter{NameContains: "al", Limit: 10}

	next.On("Create", mock.Anything, in).Return(out, nil)
	next.On("List", mock.Anything, filter).Return([]domain.User{*out}, int64(1), nil)

	created, err := repo.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, out, created)

	users, total, err := repo.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, users, 1)

	next.AssertExpectations(t)
}
