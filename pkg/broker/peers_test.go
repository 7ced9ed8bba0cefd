package broker

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nextgraph-core/ng/pkg/event"
)

var errForwardFailed = errors.New("forward failed")

type fakeRemoteBroker struct {
	calls atomic.Int32
	fail  bool
}

func (f *fakeRemoteBroker) Forward(ev *event.Event) error {
	f.calls.Add(1)
	if f.fail {
		return errForwardFailed
	}
	return nil
}

func TestListAndSamplePeers(t *testing.T) {
	f := newTestBroker(t)
	f.b.AddPeer("broker-a", &fakeRemoteBroker{})
	f.b.AddPeer("broker-b", &fakeRemoteBroker{})
	f.b.AddPeer("broker-c", &fakeRemoteBroker{})

	require.ElementsMatch(t, []string{"broker-a", "broker-b", "broker-c"}, f.b.ListPeers())

	sample := f.b.SamplePeers(2)
	require.Len(t, sample, 2)
	require.Subset(t, []string{"broker-a", "broker-b", "broker-c"}, sample)

	full := f.b.SamplePeers(10)
	require.Len(t, full, 3)
}

func TestRouteToSampleCollectsErrors(t *testing.T) {
	f := newTestBroker(t)
	ok := &fakeRemoteBroker{}
	bad := &fakeRemoteBroker{fail: true}
	f.b.AddPeer("ok", ok)
	f.b.AddPeer("bad", bad)

	ev := &event.Event{RepoID: []byte("repo-1")}
	errs := f.b.RouteToSample(2, ev)
	require.Len(t, errs, 1)
	require.EqualValues(t, 1, ok.calls.Load())
	require.EqualValues(t, 1, bad.calls.Load())
}
