package netconn

import (
	"context"
	"sync"
	"time"
)

// Pinger round-trips a liveness probe to a link, returning its RTT.
type Pinger interface {
	Ping(ctx context.Context, linkID string) (time.Duration, error)
}

type linkStat struct {
	ewmaMillis float64
	misses     int
	lastUpdate time.Time
}

// LinkInfo is a snapshot of one monitored link's health.
type LinkInfo struct {
	LinkID     string
	RTTMillis  float64
	Misses     int
	LastUpdate time.Time
	Faulty     bool
}

// HealthMonitor periodically pings every registered link and flags one
// as faulty once its EWMA-smoothed RTT exceeds maxRTTMillis or it
// misses maxMisses consecutive pings, calling onFaulty exactly once
// per fault transition so the caller (typically a broker dropping a
// dead connection) doesn't get paged repeatedly for the same link.
// Grounded on the teacher's `core/fault_tolerance.go` HealthChecker —
// same EWMA/miss-count/ticker shape, generalised from "flag the
// consensus leader faulty and trigger a view change" (no such concept
// exists for NextGraph's point-to-point links) to "flag a link faulty
// and let the caller decide what to do about it".
type HealthMonitor struct {
	mu            sync.Mutex
	links         map[string]*linkStat
	interval      time.Duration
	alpha         float64
	maxRTT        float64
	maxMisses     int
	ping          Pinger
	onFaulty      func(linkID string)
	faultNotified map[string]bool
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewHealthMonitor starts a background ping loop over the given
// Pinger; call Stop to terminate it.
func NewHealthMonitor(ping Pinger, interval time.Duration, maxRTT time.Duration, maxMisses int, onFaulty func(linkID string)) *HealthMonitor {
	hm := &HealthMonitor{
		links:         make(map[string]*linkStat),
		interval:      interval,
		alpha:         0.2,
		maxRTT:        float64(maxRTT.Milliseconds()),
		maxMisses:     maxMisses,
		ping:          ping,
		onFaulty:      onFaulty,
		faultNotified: make(map[string]bool),
		stop:          make(chan struct{}),
	}
	go hm.loop()
	return hm
}

func (hm *HealthMonitor) loop() {
	t := time.NewTicker(hm.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			hm.tick()
		case <-hm.stop:
			return
		}
	}
}

// Stop terminates the background ping loop. Safe to call more than once.
func (hm *HealthMonitor) Stop() {
	hm.stopOnce.Do(func() { close(hm.stop) })
}

func (hm *HealthMonitor) tick() {
	hm.mu.Lock()
	ids := make([]string, 0, len(hm.links))
	for id := range hm.links {
		ids = append(ids, id)
	}
	hm.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(linkID string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), hm.interval)
			defer cancel()
			rtt, err := hm.ping.Ping(ctx, linkID)
			hm.record(linkID, rtt, err)
		}(id)
	}
	wg.Wait()
}

func (hm *HealthMonitor) record(linkID string, rtt time.Duration, pingErr error) {
	hm.mu.Lock()
	st, ok := hm.links[linkID]
	if !ok {
		hm.mu.Unlock()
		return
	}
	if pingErr != nil {
		st.misses++
	} else {
		st.misses = 0
		ms := float64(rtt.Milliseconds())
		if st.ewmaMillis == 0 {
			st.ewmaMillis = ms
		} else {
			st.ewmaMillis = hm.alpha*ms + (1-hm.alpha)*st.ewmaMillis
		}
	}
	st.lastUpdate = time.Now()
	faulty := st.misses >= hm.maxMisses || st.ewmaMillis > hm.maxRTT
	alreadyNotified := hm.faultNotified[linkID]
	if faulty && !alreadyNotified {
		hm.faultNotified[linkID] = true
	} else if !faulty {
		hm.faultNotified[linkID] = false
	}
	hm.mu.Unlock()

	if faulty && !alreadyNotified && hm.onFaulty != nil {
		hm.onFaulty(linkID)
	}
}

// AddLink registers linkID for periodic health checks.
func (hm *HealthMonitor) AddLink(linkID string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.links[linkID] = &linkStat{}
	hm.faultNotified[linkID] = false
}

// RemoveLink stops tracking linkID.
func (hm *HealthMonitor) RemoveLink(linkID string) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	delete(hm.links, linkID)
	delete(hm.faultNotified, linkID)
}

// Snapshot returns the current health of every tracked link.
func (hm *HealthMonitor) Snapshot() []LinkInfo {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	out := make([]LinkInfo, 0, len(hm.links))
	for id, st := range hm.links {
		faulty := st.misses >= hm.maxMisses || st.ewmaMillis > hm.maxRTT
		out = append(out, LinkInfo{
			LinkID:     id,
			RTTMillis:  st.ewmaMillis,
			Misses:     st.misses,
			LastUpdate: st.lastUpdate,
			Faulty:     faulty,
		})
	}
	return out
}
