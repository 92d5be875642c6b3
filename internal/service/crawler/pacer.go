package crawler

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
)

const (
	stagnationStep    = 10 * time.Second
	stagnationPenalty = 60 * time.Second
)

// Pacer 控制两次翻页之间的间隔
type Pacer interface {
	Wait(ctx context.Context, stagnation int) error
}

// RandomPacer 均匀随机间隔, 停滞时额外退避
type RandomPacer struct {
	min, max time.Duration
	log      logger.Logger
}

func NewRandomPacer(lo, hi time.Duration, log logger.Logger) *RandomPacer {
	if hi < lo {
		lo, hi = hi, lo
	}
	return &RandomPacer{min: lo, max: hi, log: log}
}

// Delay uniform(min, max) + min(60s, 10s*stagnation)
func (p *RandomPacer) Delay(stagnation int) time.Duration {
	d := p.min
	if span := p.max - p.min; span > 0 {
		d += rand.N(span + 1)
	}
	if stagnation > 0 {
		d += min(stagnationPenalty, time.Duration(stagnation)*stagnationStep)
	}
	return d
}

func (p *RandomPacer) Wait(ctx context.Context, stagnation int) error {
	d := p.Delay(stagnation)
	p.log.Debug("等待下一次翻页", logger.Duration("delay", d), logger.Int("no_progress", stagnation))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
