package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"blogicum/config"
	"blogicum/utils"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{SessionSecret: "test-secret"})

	token, err := utils.GenerateToken(42, "alice", time.Hour)
	require.NoError(t, err)

	claims, err := utils.ParseToken(token)
	require.NoError(t, err)
	require.EqualValues(t, 42, claims.UserID)
	require.Equal(t, "alice", claims.Username)
}

func TestExpiredTokenRejected(t *testing.T) {
	config.Set(config.AppConfig{SessionSecret: "test-secret"})

	token, err := utils.GenerateToken(1, "bob", -time.Minute)
	require.NoError(t, err)

	_, err = utils.ParseToken(token)
	require.Error(t, err)
}

func TestTamperedTokenRejected(t *testing.T) {
	config.Set(config.AppConfig{SessionSecret: "test-secret"})

	token, err := utils.GenerateToken(1, "carol", time.Hour)
	require.NoError(t, err)

	_, err = utils.ParseToken(token + "x")
	require.Error(t, err)
}

func TestBlacklistFallsBackToMemory(t *testing.T) {
	config.Set(config.AppConfig{SessionSecret: "test-secret"})
	utils.SetRedisForTesting(nil)

	token, err := utils.GenerateToken(7, "dave", time.Hour)
	require.NoError(t, err)

	require.False(t, utils.IsTokenBlacklisted(token))
	utils.BlacklistToken(token, time.Now().Add(time.Hour))
	require.True(t, utils.IsTokenBlacklisted(token))
}
