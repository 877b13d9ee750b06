package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
}

type lastPrompt struct {
	text string
	ts   time.Time
}

// Limiter throttles the AI endpoints: a token bucket per user and IP,
// a duplicate prompt guard and a bounded number of in-flight replies per user.
type Limiter struct {
	rlMu     sync.Mutex
	buckets  map[string]*bucket
	window   time.Duration
	capacity int

	dupMu   sync.Mutex
	lastMsg map[string]lastPrompt
	dupTTL  time.Duration

	cgMu     sync.Mutex
	userSem  map[string]chan struct{}
	userConc int

	now func() time.Time
}

func NewLimiter(window time.Duration, capacity, userConc int, dupTTL time.Duration) *Limiter {
	return &Limiter{
		buckets:  map[string]*bucket{},
		window:   window,
		capacity: capacity,
		lastMsg:  map[string]lastPrompt{},
		dupTTL:   dupTTL,
		userSem:  map[string]chan struct{}{},
		userConc: userConc,
		now:      time.Now,
	}
}

func clientIP(c *gin.Context) string {
	ip := strings.TrimSpace(c.ClientIP())
	if ip == "" {
		host, _, _ := net.SplitHostPort(strings.TrimSpace(c.Request.RemoteAddr))
		ip = host
	}
	return ip
}

func userKey(c *gin.Context) string {
	return CurrentUserID(c) + "@" + clientIP(c)
}

// CallerKey identifies the caller for per-user throttling. Anonymous callers
// are told apart by client IP.
func CallerKey(c *gin.Context) string {
	if uid := CurrentUserID(c); uid != AnonymousUser {
		return uid
	}
	return userKey(c)
}

// Allow takes one token from key's bucket.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.rlMu.Lock()
	defer l.rlMu.Unlock()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		add := int(float64(l.capacity) * (float64(elapsed) / float64(l.window)))
		if add > 0 {
			b.tokens += add
			if b.tokens > l.capacity {
				b.tokens = l.capacity
			}
			b.lastRefill = now
		}
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

func (l *Limiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(userKey(c)) {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"msg": "too many requests"})
			return
		}
		c.Next()
	}
}

// DuplicateGuard returns false when key sent the same text within the
// duplicate window.
func (l *Limiter) DuplicateGuard(key, text string) bool {
	now := l.now()
	text = strings.TrimSpace(text)

	l.dupMu.Lock()
	defer l.dupMu.Unlock()
	if entry, ok := l.lastMsg[key]; ok && entry.text == text && now.Sub(entry.ts) < l.dupTTL {
		return false
	}
	l.lastMsg[key] = lastPrompt{text: text, ts: now}
	return true
}

// ForgetPrompt drops the last prompt recorded for key so it can be sent again.
func (l *Limiter) ForgetPrompt(key string) {
	l.dupMu.Lock()
	defer l.dupMu.Unlock()
	delete(l.lastMsg, key)
}

// AcquireUserSlot blocks until uid has a free reply slot or ctx is done.
func (l *Limiter) AcquireUserSlot(ctx context.Context, uid string) (release func(), err error) {
	l.cgMu.Lock()
	sem := l.userSem[uid]
	if sem == nil {
		sem = make(chan struct{}, l.userConc)
		l.userSem[uid] = sem
	}
	l.cgMu.Unlock()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
