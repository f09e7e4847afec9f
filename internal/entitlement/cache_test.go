package entitlement

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/campushr/campushr/internal/directory"
)

type countingRepo struct {
	configs []Config
	calls   int
}

func (c *countingRepo) ListActive(context.Context) ([]Config, error) {
	c.calls++
	return c.configs, nil
}

func (c *countingRepo) List(context.Context) ([]Config, error) {
	return c.configs, nil
}

func (c *countingRepo) Get(context.Context, int64) (Config, error) {
	return Config{}, nil
}

func (c *countingRepo) Upsert(_ context.Context, cfg Config) (Config, error) {
	return cfg, nil
}

func newCache(t *testing.T) (*ConfigCache, *countingRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &countingRepo{configs: []Config{
		{ID: 1, Category: directory.CategoryTeacher, Contract: directory.ContractAnnual, Allowance: 5, Renewal: CadencePeriod, Active: true},
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewConfigCache(repo, client, time.Minute, logger), repo, mr
}

func TestListActiveCachesRuleSet(t *testing.T) {
	cache, repo, _ := newCache(t)

	first, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, repo.calls)

	second, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, repo.calls)
}

func TestInvalidateForcesReload(t *testing.T) {
	cache, repo, _ := newCache(t)

	_, err := cache.ListActive(context.Background())
	require.NoError(t, err)

	cache.Invalidate(context.Background())

	_, err = cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestCacheExpiresWithTTL(t *testing.T) {
	cache, repo, mr := newCache(t)

	_, err := cache.ListActive(context.Background())
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, repo.calls)
}

func TestCorruptCacheEntryIsDropped(t *testing.T) {
	cache, repo, mr := newCache(t)

	require.NoError(t, mr.Set(configCacheKey, "{not json"))

	configs, err := cache.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, configs, 1)
	require.Equal(t, 1, repo.calls)
}
