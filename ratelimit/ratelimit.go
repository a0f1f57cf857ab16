// Package ratelimit enforces rolling-window ceilings on outbound requests.
package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const maxJitter = 2 * time.Second

// Limiter admits requests subject to per-minute and per-hour ceilings over
// rolling windows. Admissions are timestamped; stale entries are purged
// before every check. Safe for concurrent use.
type Limiter struct {
	perMinute int
	perHour   int

	mu     sync.Mutex
	minute []time.Time
	hour   []time.Time

	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
	jitter func() time.Duration
}

// New builds a limiter with the given window ceilings.
func New(perMinute, perHour int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
		sleep:     sleepContext,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(maxJitter)))
		},
	}
}

// Admit blocks until one more request fits under both ceilings, then records
// the admission. It returns early only when ctx is cancelled.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.now()
		l.purgeLocked(now)

		var wait time.Duration
		switch {
		case len(l.minute) >= l.perMinute:
			wait = l.minute[0].Add(time.Minute).Sub(now) + l.jitter()
		case len(l.hour) >= l.perHour:
			wait = l.hour[0].Add(time.Hour).Sub(now) + l.jitter()
		default:
			l.minute = append(l.minute, now)
			l.hour = append(l.hour, now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending reports how many admissions currently sit in each window.
func (l *Limiter) Pending() (minute, hour int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purgeLocked(l.now())
	return len(l.minute), len(l.hour)
}

func (l *Limiter) purgeLocked(now time.Time) {
	minuteCutoff := now.Add(-time.Minute)
	hourCutoff := now.Add(-time.Hour)

	i := 0
	for i < len(l.minute) && !l.minute[i].After(minuteCutoff) {
		i++
	}
	l.minute = l.minute[i:]

	i = 0
	for i < len(l.hour) && !l.hour[i].After(hourCutoff) {
		i++
	}
	l.hour = l.hour[i:]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
