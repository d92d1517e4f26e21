package supervisor

import (
	"time"

	"github.com/norsninja/chronus/internal/logging"
)

// underflowWindowSize and underflowAlertRatio are U_alert from spec.md
// §4.6: an underflow rate exceeding 0.5% over the last 1000 callbacks
// triggers a logged alert from a non-audio thread.
const (
	underflowWindowSize  = 1000
	underflowAlertRatio  = 0.005
	underflowCheckPeriod = 200 * time.Millisecond
)

// runUnderflowMonitor is the non-audio thread that periodically sums
// the callback's lock-free outcome window and raises (or clears) the
// rate alert. It never touches the window's producer side — the audio
// callback only ever stores into it, this goroutine only ever loads.
func (sv *Supervisor) runUnderflowMonitor() {
	ticker := time.NewTicker(underflowCheckPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sv.stopMonitor:
			return
		case <-ticker.C:
			sv.checkUnderflowRate()
		}
	}
}

func (sv *Supervisor) checkUnderflowRate() {
	total := sv.callbackSeq.Load()
	n := uint64(underflowWindowSize)
	if total < n {
		n = total
	}
	if n == 0 {
		return
	}

	var sum uint32
	for i := uint64(0); i < n; i++ {
		sum += sv.underflowWindow[i].Load()
	}
	rate := float64(sum) / float64(n)

	if rate > underflowAlertRatio {
		if sv.underflowAlerting.CompareAndSwap(false, true) {
			sv.events.Push(logging.EventUnderflowRateAlert, uint32(rate*10000))
		}
		return
	}
	sv.underflowAlerting.Store(false)
}
