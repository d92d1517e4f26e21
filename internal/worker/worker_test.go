package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/norsninja/chronus/internal/dsp"
	"github.com/norsninja/chronus/internal/patch"
	"github.com/norsninja/chronus/internal/ring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(t *testing.T) (*Worker, *ring.CommandRing) {
	t.Helper()
	host := patch.NewHost(48000, 64)
	audioRing := ring.NewAudioRing(16, 64)
	cmdRing := ring.NewCommandRing(64)
	var hb atomic.Uint64
	w := New("test", host, audioRing, cmdRing, &hb, 48000, 64, 0)
	return w, cmdRing
}

func TestWorkerCommitTagReachesPrimeReady(t *testing.T) {
	w, cmdRing := newTestWorker(t)
	stop := make(chan struct{})
	go w.Run(stop)
	defer close(stop)

	spec := &patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
		Prime: []patch.PrimeOp{
			{ModuleID: "osc1", Param: "freq", Value: 440},
			{ModuleID: "osc1", Param: "gain", Value: 0.5},
		},
		WarmupFrames: 4,
	}
	w.StageGraph(spec)
	require.NoError(t, cmdRing.Write(ring.Command{Op: ring.OpPatchCommitTag}))

	require.Eventually(t, w.PrimeReady, time.Second, time.Millisecond)
}

func TestWorkerCrashClosesDone(t *testing.T) {
	w, cmdRing := newTestWorker(t)
	stop := make(chan struct{})
	go w.Run(stop)

	require.NoError(t, cmdRing.Write(ring.Command{Op: ring.OpShutdown}))

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("worker did not exit after SHUTDOWN")
	}
}

func TestWorkerPrefillsLeadTargetFramesBeforeSteadyPacing(t *testing.T) {
	host := patch.NewHost(48000, 64)
	audioRing := ring.NewAudioRing(16, 64)
	cmdRing := ring.NewCommandRing(64)
	var hb atomic.Uint64
	w := New("lead", host, audioRing, cmdRing, &hb, 48000, 64, 3)

	stop := make(chan struct{})
	go w.Run(stop)
	defer close(stop)

	require.Eventually(t, func() bool {
		return audioRing.Occupancy() >= 3
	}, time.Second, time.Millisecond)
}

func TestWorkerOverflowCountedNotBlocking(t *testing.T) {
	host := patch.NewHost(48000, 8)
	require.NoError(t, host.Reset(patch.GraphSpec{
		Modules:     []patch.ModuleSpec{{ID: "osc1", Type: dsp.TypeSine}},
		ChainOutput: "osc1",
	}))
	audioRing := ring.NewAudioRing(2, 8) // tiny ring, will overflow quickly
	cmdRing := ring.NewCommandRing(8)
	var hb atomic.Uint64
	w := New("t", host, audioRing, cmdRing, &hb, 48000, 8, 0)
	w.tickPeriod = 0 // run as fast as possible for the test

	stop := make(chan struct{})
	go w.Run(stop)
	time.Sleep(20 * time.Millisecond)
	close(stop)
	<-w.Done()

	assert.Greater(t, w.OverflowCount(), uint64(0))
}
