package netconn

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type scriptedPinger struct {
	mu      sync.Mutex
	results map[string][]error
}

func (p *scriptedPinger) Ping(ctx context.Context, linkID string) (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	errs := p.results[linkID]
	if len(errs) == 0 {
		return time.Millisecond, nil
	}
	err := errs[0]
	p.results[linkID] = errs[1:]
	return time.Millisecond, err
}

func TestHealthMonitorFlagsFaultyAfterConsecutiveMisses(t *testing.T) {
	pinger := &scriptedPinger{results: map[string][]error{
		"link-1": {errors.New("timeout"), errors.New("timeout"), errors.New("timeout")},
	}}
	var faultCount atomic.Int32
	hm := NewHealthMonitor(pinger, 10*time.Millisecond, time.Second, 2, func(linkID string) {
		faultCount.Add(1)
	})
	defer hm.Stop()
	hm.AddLink("link-1")

	require.Eventually(t, func() bool {
		return faultCount.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	snap := hm.Snapshot()
	require.Len(t, snap, 1)
	require.True(t, snap[0].Faulty)
}

func TestHealthMonitorDoesNotRenotifyWhileStillFaulty(t *testing.T) {
	pinger := &scriptedPinger{results: map[string][]error{}}
	pinger.results["link-1"] = []error{
		errors.New("x"), errors.New("x"), errors.New("x"), errors.New("x"), errors.New("x"),
	}
	var faultCount atomic.Int32
	hm := NewHealthMonitor(pinger, 5*time.Millisecond, time.Second, 2, func(linkID string) {
		faultCount.Add(1)
	})
	defer hm.Stop()
	hm.AddLink("link-1")

	time.Sleep(80 * time.Millisecond)
	require.LessOrEqual(t, faultCount.Load(), int32(1))
}

func TestHealthMonitorRemoveLinkStopsTracking(t *testing.T) {
	pinger := &scriptedPinger{results: map[string][]error{}}
	hm := NewHealthMonitor(pinger, 5*time.Millisecond, time.Second, 2, nil)
	defer hm.Stop()
	hm.AddLink("link-1")
	hm.RemoveLink("link-1")
	require.Empty(t, hm.Snapshot())
}
