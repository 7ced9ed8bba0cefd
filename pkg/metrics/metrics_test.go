package metrics

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	repos, subs, actors int
	commits             uint64
}

func (f fakeSource) PinnedRepoCount() int       { return f.repos }
func (f fakeSource) LiveSubscriptionCount() int { return f.subs }
func (f fakeSource) InFlightActorCount() int    { return f.actors }
func (f fakeSource) AppliedCommitCount() uint64 { return f.commits }

func TestCollectorRecordUpdatesGauges(t *testing.T) {
	src := fakeSource{repos: 2, subs: 5, actors: 3, commits: 7}
	c, err := New(src, filepath.Join(t.TempDir(), "health.log"))
	require.NoError(t, err)
	defer c.Close()

	c.Record()

	require.Equal(t, float64(2), testutil.ToFloat64(c.pinnedReposGauge))
	require.Equal(t, float64(5), testutil.ToFloat64(c.subscriptionsGauge))
	require.Equal(t, float64(3), testutil.ToFloat64(c.actorsGauge))
	require.Equal(t, float64(7), testutil.ToFloat64(c.appliedCommitsGauge))
}

func TestCollectorSnapshotReflectsSource(t *testing.T) {
	src := fakeSource{repos: 1, subs: 0, actors: 0, commits: 42}
	c, err := New(src, filepath.Join(t.TempDir(), "health.log"))
	require.NoError(t, err)
	defer c.Close()

	snap := c.Snapshot()
	require.Equal(t, 1, snap.PinnedRepos)
	require.Equal(t, uint64(42), snap.AppliedCommits)
	require.NotZero(t, snap.Timestamp)
}

func TestCollectorRunRecordsOnInterval(t *testing.T) {
	src := fakeSource{repos: 9}
	c, err := New(src, filepath.Join(t.TempDir(), "health.log"))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	c.Run(ctx, 10*time.Millisecond)

	require.Equal(t, float64(9), testutil.ToFloat64(c.pinnedReposGauge))
}

func TestCollectorStartServerExposesMetricsEndpoint(t *testing.T) {
	src := fakeSource{repos: 4}
	c, err := New(src, filepath.Join(t.TempDir(), "health.log"))
	require.NoError(t, err)
	defer c.Close()
	c.Record()

	srv, err := c.StartServer("127.0.0.1:0")
	require.NoError(t, err)
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get("http://" + srv.Addr + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	require.Equal(t, http.StatusOK, metricsResp.StatusCode)
}
