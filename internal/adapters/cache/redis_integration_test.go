//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"pubspy/internal/adapters/cache"
)

type RedisBackendSuite struct {
	suite.Suite
	container *tcredis.RedisContainer
	backend   *cache.RedisBackend
}

func TestRedisBackendSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisBackendSuite))
}

func (s *RedisBackendSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	s.Require().NoError(err, "failed to start redis container")
	s.container = container

	url, err := container.ConnectionString(ctx)
	s.Require().NoError(err)

	backend, err := cache.DialRedis(ctx, url)
	s.Require().NoError(err)
	s.backend = backend
}

func (s *RedisBackendSuite) TearDownSuite() {
	ctx := context.Background()
	if s.backend != nil {
		_ = s.backend.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(ctx)
	}
}

func (s *RedisBackendSuite) TestStoreThenLoad() {
	ctx := context.Background()

	s.Require().NoError(s.backend.Store(ctx, "ads.txt:example.com", []byte(`{"found":true}`), time.Minute))
	data, found, err := s.backend.Load(ctx, "ads.txt:example.com")

	s.Require().NoError(err)
	s.True(found)
	s.JSONEq(`{"found":true}`, string(data))
}

func (s *RedisBackendSuite) TestLoadMissing() {
	_, found, err := s.backend.Load(context.Background(), "search:missing")

	s.Require().NoError(err)
	s.False(found)
}

func (s *RedisBackendSuite) TestEntriesExpire() {
	ctx := context.Background()

	s.Require().NoError(s.backend.Store(ctx, "response:short", []byte(`1`), time.Second))
	s.Eventually(func() bool {
		_, found, _ := s.backend.Load(ctx, "response:short")
		return !found
	}, 5*time.Second, 100*time.Millisecond)
}

func (s *RedisBackendSuite) TestSecondTierSharedBetweenCaches() {
	ctx := context.Background()
	first := cache.New(cache.WithBackend(s.backend))
	second := cache.New(cache.WithBackend(s.backend))

	_, err := cache.GetOrCompute(ctx, first, "search:shared", cache.ClassSearch, func(context.Context) ([]string, error) {
		return []string{"example.com"}, nil
	})
	s.Require().NoError(err)

	got, err := cache.GetOrCompute(ctx, second, "search:shared", cache.ClassSearch, func(context.Context) ([]string, error) {
		s.Fail("producer should not run when the second tier has the value")
		return nil, nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"example.com"}, got)
}

func (s *RedisBackendSuite) TestDialEmptyURLDisablesBackend() {
	b, err := cache.DialRedis(context.Background(), "")

	s.NoError(err)
	s.Nil(b)
}
