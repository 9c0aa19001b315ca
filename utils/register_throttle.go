package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"blogicum/config"
)

// Per-IP registration throttling backed by Redis. Every check fails open:
// with Redis absent or erroring, registration proceeds unthrottled.

func regKey(parts ...string) string {
	out := "reg"
	for _, p := range parts {
		out += ":" + p
	}
	return out
}

// RegistrationCooldownTry enforces a short cooldown between attempts per IP.
func RegistrationCooldownTry(ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	cli := GetRedis()
	if sec <= 0 || cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	ok, err := cli.SetNX(ctx, regKey("cooldown", ip), "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// RegistrationDailyLimitCheck allows up to N registrations per day per IP.
func RegistrationDailyLimitCheck(ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	cli := GetRedis()
	if limit <= 0 || cli == nil {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	n, err := cli.Get(ctx, regKey("succday", ip, time.Now().Format("20060102"))).Int()
	if err == redis.Nil {
		n = 0
	} else if err != nil {
		return true
	}
	return n < limit
}

// RegistrationDailyIncrement increments the success counter for today.
func RegistrationDailyIncrement(ip string) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := regKey("succday", ip, time.Now().Format("20060102"))
	if err := cli.Incr(ctx, key).Err(); err == nil {
		ttl := time.Until(time.Now().Truncate(24 * time.Hour).Add(24 * time.Hour))
		_ = cli.Expire(ctx, key, ttl).Err()
	}
}

// RegistrationFailRecord increments failure count per hour; returns current count.
func RegistrationFailRecord(ip string) int {
	cli := GetRedis()
	if cli == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	key := regKey("failhour", ip, time.Now().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return 0
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	return int(n)
}

// RegistrationIsBanned checks temporary ban status for an IP.
func RegistrationIsBanned(ip string) bool {
	cli := GetRedis()
	if cli == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	exists, err := cli.Exists(ctx, regKey("ban", ip)).Result()
	if err != nil {
		return false
	}
	return exists > 0
}

// RegistrationBan sets a temporary ban for an IP.
func RegistrationBan(ip string) {
	cli := GetRedis()
	if cli == nil {
		return
	}
	minutes := config.Get().RegisterTempBanMinutes
	if minutes <= 0 {
		minutes = 60
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_ = cli.Set(ctx, regKey("ban", ip), "1", time.Duration(minutes)*time.Minute).Err()
}
