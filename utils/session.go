package utils

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cppla/bloghouse/config"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "blog_session"

// Session is the server-side identity record behind an opaque token.
type Session struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

type sessionEntry struct {
	session   Session
	expiresAt time.Time
}

var (
	sessions    = map[string]sessionEntry{}
	sessionsMu  sync.RWMutex
	sweeperOnce sync.Once
)

// startSessionSweeper prunes expired in-memory sessions on a ticker so
// abandoned logins do not accumulate for the process lifetime. Redis entries
// expire on their own TTL.
func startSessionSweeper() {
	sweeperOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				pruneExpiredSessions(time.Now())
			}
		}()
	})
}

func pruneExpiredSessions(now time.Time) {
	sessionsMu.Lock()
	defer sessionsMu.Unlock()
	for token, entry := range sessions {
		if now.After(entry.expiresAt) {
			delete(sessions, token)
		}
	}
}

// CreateSession stores a new session and returns the signed cookie value.
// Redis is preferred so sessions survive restarts; when it is unreachable the
// in-memory map keeps the process functional.
func CreateSession(userID uint, email string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	sess := Session{UserID: userID, Email: email}

	stored := false
	if rc := GetRedis(); rc != nil {
		if b, err := json.Marshal(sess); err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := rc.Set(ctx, "session:"+token, b, ttl).Err(); err == nil {
				stored = true
			}
		}
	}
	if !stored {
		sessionsMu.Lock()
		sessions[token] = sessionEntry{session: sess, expiresAt: time.Now().Add(ttl)}
		sessionsMu.Unlock()
		startSessionSweeper()
	}

	return signToken(token), nil
}

// ResolveSession maps a signed cookie value back to its session record.
// A tampered signature is rejected before any store lookup.
func ResolveSession(cookieValue string) (Session, bool) {
	token, ok := verifyToken(cookieValue)
	if !ok {
		return Session{}, false
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if b, err := rc.Get(ctx, "session:"+token).Bytes(); err == nil {
			var sess Session
			if err := json.Unmarshal(b, &sess); err == nil {
				return sess, true
			}
		}
	}

	sessionsMu.RLock()
	entry, ok := sessions[token]
	sessionsMu.RUnlock()
	if !ok {
		return Session{}, false
	}
	if time.Now().After(entry.expiresAt) {
		sessionsMu.Lock()
		delete(sessions, token)
		sessionsMu.Unlock()
		return Session{}, false
	}
	return entry.session, true
}

// DeleteSession invalidates the session behind a signed cookie value.
func DeleteSession(cookieValue string) {
	token, ok := verifyToken(cookieValue)
	if !ok {
		return
	}

	if rc := GetRedis(); rc != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = rc.Del(ctx, "session:"+token).Err()
	}

	sessionsMu.Lock()
	delete(sessions, token)
	sessionsMu.Unlock()
}

// signToken appends an HMAC-SHA256 signature so the cookie is tamper-evident.
func signToken(token string) string {
	return token + "." + computeSignature(token)
}

// verifyToken checks the signature and returns the bare token.
func verifyToken(cookieValue string) (string, bool) {
	token, sig, found := strings.Cut(cookieValue, ".")
	if !found || token == "" {
		return "", false
	}
	expected, err := hex.DecodeString(computeSignature(token))
	if err != nil {
		return "", false
	}
	provided, err := hex.DecodeString(sig)
	if err != nil || len(provided) != len(expected) {
		return "", false
	}
	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return "", false
	}
	return token, true
}

func computeSignature(token string) string {
	h := hmac.New(sha256.New, []byte(config.Get().SecretKey))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
