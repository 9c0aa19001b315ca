package utils_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"blogicum/config"
	"blogicum/utils"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	config.Set(config.AppConfig{
		SessionSecret:   "test-secret",
		CacheTTLSeconds: 300,
	})
	mr := miniredis.RunT(t)
	utils.SetRedisForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedisForTesting(nil) })
	return mr
}

func TestCacheJSONRoundTrip(t *testing.T) {
	mr := setupRedis(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var missed payload
	require.False(t, utils.CacheGetJSON("cache:feed:home:page=1", &missed))

	utils.CacheSetJSON("cache:feed:home:page=1", payload{Name: "feed", Count: 3}, 0)

	var got payload
	require.True(t, utils.CacheGetJSON("cache:feed:home:page=1", &got))
	require.Equal(t, "feed", got.Name)
	require.Equal(t, 3, got.Count)

	// The configured default TTL applies when none is given.
	ttl := mr.TTL("cache:feed:home:page=1")
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, 300*time.Second)
}

func TestInvalidateByPrefix(t *testing.T) {
	setupRedis(t)

	utils.CacheSetBytes("cache:feed:home:page=1", []byte("a"), time.Minute)
	utils.CacheSetBytes("cache:feed:cat=go:page=1", []byte("b"), time.Minute)
	utils.CacheSetBytes("other:key", []byte("c"), time.Minute)

	utils.InvalidateByPrefix("cache:feed:")

	_, ok := utils.CacheGetBytes("cache:feed:home:page=1")
	require.False(t, ok)
	_, ok = utils.CacheGetBytes("cache:feed:cat=go:page=1")
	require.False(t, ok)
	_, ok = utils.CacheGetBytes("other:key")
	require.True(t, ok)
}

func TestCacheDisabledWithoutRedis(t *testing.T) {
	config.Set(config.AppConfig{SessionSecret: "test-secret"})
	utils.SetRedisForTesting(nil)

	utils.CacheSetBytes("k", []byte("v"), time.Minute)
	_, ok := utils.CacheGetBytes("k")
	require.False(t, ok)
}

func TestRegistrationThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	config.Set(config.AppConfig{
		SessionSecret:              "test-secret",
		RegisterAttemptCooldownSec: 30,
		RegisterMaxPerIPPerDay:     2,
	})
	utils.SetRedisForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedisForTesting(nil) })

	ip := "203.0.113.7"

	require.True(t, utils.RegistrationCooldownTry(ip))
	require.False(t, utils.RegistrationCooldownTry(ip))

	require.True(t, utils.RegistrationDailyLimitCheck(ip))
	utils.RegistrationDailyIncrement(ip)
	utils.RegistrationDailyIncrement(ip)
	require.False(t, utils.RegistrationDailyLimitCheck(ip))

	require.False(t, utils.RegistrationIsBanned(ip))
	utils.RegistrationBan(ip)
	require.True(t, utils.RegistrationIsBanned(ip))
}

func TestStateStoreSingleUse(t *testing.T) {
	setupRedis(t)

	utils.SaveState("state-token", time.Minute)
	require.True(t, utils.ConsumeState("state-token"))
	require.False(t, utils.ConsumeState("state-token"))
	require.False(t, utils.ConsumeState("never-saved"))
}
