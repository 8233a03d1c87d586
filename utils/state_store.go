package utils

import (
	"context"
	"sync"
	"time"
)

type stateEntry struct {
	provider  string
	expiresAt time.Time
}

var (
	stateStore   = map[string]stateEntry{}
	stateStoreMu sync.Mutex
)

// SaveOAuthState stores an OAuth state token mapped to its provider, with a
// TTL, to tie the callback to the provider that issued the redirect and to
// mitigate CSRF.
func SaveOAuthState(state, provider string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Set(ctx, "oauth:state:"+state, provider, ttl).Err()
		return
	}
	stateStoreMu.Lock()
	stateStore[state] = stateEntry{provider: provider, expiresAt: time.Now().Add(ttl)}
	stateStoreMu.Unlock()
}

// ConsumeOAuthState validates and removes a state token, returning the
// provider it was issued for.
func ConsumeOAuthState(state string) (string, bool) {
	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if v, err := rc.GetDel(ctx, "oauth:state:"+state).Result(); err == nil && v != "" {
			return v, true
		}
		return "", false
	}
	stateStoreMu.Lock()
	entry, ok := stateStore[state]
	if ok {
		delete(stateStore, state)
	}
	stateStoreMu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", false
	}
	return entry.provider, true
}
