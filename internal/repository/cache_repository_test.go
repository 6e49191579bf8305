package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/campusdesk/college-admin-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "college")
	ctx := context.Background()

	var dest map[string]int
	assert.ErrorIs(t, repo.Get(ctx, "dashboard:summary", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "dashboard:summary", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "dashboard:*"))
	assert.NoError(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryKeyPrefix(t *testing.T) {
	assert.Equal(t, "college:coverage:all", NewCacheRepository(nil, "college").key("coverage:all"))
	assert.Equal(t, "coverage:all", NewCacheRepository(nil, "").key("coverage:all"))
}
