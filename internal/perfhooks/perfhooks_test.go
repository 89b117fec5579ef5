package perfhooks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNowMillisIsMonotonicallyIncreasing(t *testing.T) {
	c := NewClock()
	first := c.NowMillis()
	time.Sleep(2 * time.Millisecond)
	second := c.NowMillis()
	require.Greater(t, second, first)
}

func TestNowMillisStartsNearZero(t *testing.T) {
	c := NewClock()
	require.InDelta(t, 0, c.NowMillis(), 5)
}
