package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDurationHistory(t *testing.T) {
	h := durationHistory{size: 3, fallback: 180 * time.Second}
	require.Equal(t, 180*time.Second, h.average())

	for _, s := range []int{10, 20, 30, 40} {
		h.add(time.Duration(s) * time.Second)
	}
	require.Len(t, h.values, 3)
	require.Equal(t, 30*time.Second, h.average())
}

func TestRunningETA(t *testing.T) {
	avg := 180 * time.Second
	require.Equal(t, 170*time.Second, runningETA(avg, 10*time.Second, 0))
	require.Equal(t, 5*time.Second, runningETA(avg, 200*time.Second, 0.05))
	require.Equal(t, 30*time.Second, runningETA(avg, 30*time.Second, 50))
	// Progress is clamped to 99 so a job is never reported as finished.
	require.Equal(t, time.Second, runningETA(avg, 10*time.Second, 100))
}

func TestQueuedETA_MonotonicInPosition(t *testing.T) {
	avg := 42 * time.Second
	prev := time.Duration(0)
	for pos := 0; pos < 20; pos++ {
		eta := queuedETA(avg, pos)
		require.GreaterOrEqual(t, eta, prev, "position %d", pos)
		require.GreaterOrEqual(t, eta, 5*time.Second)
		prev = eta
	}
	require.Equal(t, 84*time.Second, queuedETA(avg, 2))
}

func TestDownloadName(t *testing.T) {
	require.Equal(t, "demo-site.zip", DownloadName("demo"))
	require.Equal(t, "apps-demo-site.zip", DownloadName("apps/demo"))
	require.Equal(t, "site.zip", DownloadName(""))
}

func TestSlugValidation(t *testing.T) {
	for _, ok := range []string{"demo", "a", "0site", "apps/demo", "my_site-2"} {
		require.True(t, ValidSlug(ok), ok)
	}
	for _, bad := range []string{"", "Demo", "_x", "a.b", "a b"} {
		require.False(t, ValidSlug(bad), bad)
	}
	require.Equal(t, "demo", NormalizeSlug(" demo// "))
}
