package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestRandomPacerDelay(t *testing.T) {
	p := NewRandomPacer(8*time.Second, 16*time.Second, logger.NewNop())
	for range 100 {
		d := p.Delay(0)
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 16*time.Second)
	}

	fixed := NewRandomPacer(time.Second, time.Second, logger.NewNop())
	assert.Equal(t, time.Second, fixed.Delay(0))
	assert.Equal(t, 21*time.Second, fixed.Delay(2))
	assert.Equal(t, 61*time.Second, fixed.Delay(9))
}

func TestRandomPacerWaitHonorsContext(t *testing.T) {
	p := NewRandomPacer(time.Hour, time.Hour, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Wait(ctx, 0), context.Canceled)

	quick := NewRandomPacer(time.Millisecond, 2*time.Millisecond, logger.NewNop())
	assert.NoError(t, quick.Wait(context.Background(), 0))
}
