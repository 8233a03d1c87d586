package utils

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

// In-memory fallback for single-instance deployments without Redis.
type codeEntry struct {
	code      string
	expiresAt time.Time
}

var (
	codeStore   = map[string]codeEntry{}
	codeStoreMu sync.Mutex
)

// GenerateLoginCode creates a numeric one-time code for email login.
func GenerateLoginCode(n int) string {
	if n <= 0 {
		n = 6
	}
	digits := make([]byte, n)
	for i := 0; i < n; i++ {
		v, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			v = big.NewInt(time.Now().UnixNano() % 10)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits)
}

func loginCodeKey(email string) string {
	return "login:code:" + email
}

// SaveLoginCode stores a login code for an email with TTL. Prefer Redis;
// fall back to memory.
func SaveLoginCode(email, code string, ttl time.Duration) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rc.Set(ctx, loginCodeKey(email), code, ttl).Err(); err == nil {
			return
		}
	}
	codeStoreMu.Lock()
	codeStore[email] = codeEntry{code: code, expiresAt: time.Now().Add(ttl)}
	codeStoreMu.Unlock()
}

// ConsumeLoginCode checks a login code and consumes it if valid. Single use:
// the stored code is removed whether or not the comparison succeeds.
func ConsumeLoginCode(email, code string) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if val, err := rc.GetDel(ctx, loginCodeKey(email)).Result(); err == nil {
			return val == code
		}
		// Redis error (network, old server); fall through to memory.
	}
	codeStoreMu.Lock()
	defer codeStoreMu.Unlock()
	entry, ok := codeStore[email]
	if !ok {
		return false
	}
	delete(codeStore, email)
	if time.Now().After(entry.expiresAt) {
		return false
	}
	return entry.code == code
}

// LoginCodeCooldownTrySet sets a cooldown key for sending a login code.
// Returns true if set, false if still cooling down.
func LoginCodeCooldownTrySet(email string, cooldown time.Duration) bool {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ok, _ := rc.SetNX(ctx, "login:cooldown:"+email, "1", cooldown).Result()
		return ok
	}
	key := "login:cooldown:mem:" + email
	codeStoreMu.Lock()
	defer codeStoreMu.Unlock()
	if entry, ok := codeStore[key]; ok && time.Now().Before(entry.expiresAt) {
		return false
	}
	codeStore[key] = codeEntry{code: "1", expiresAt: time.Now().Add(cooldown)}
	return true
}
