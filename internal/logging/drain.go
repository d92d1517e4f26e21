package logging

import "time"

// RunEventDrain polls ring at the given period and logs each drained
// event at the appropriate level, until stop is closed. Intended to
// run as the engine's one dedicated logger goroutine.
func (l *Logger) RunEventDrain(ring *EventRing, period time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			ring.Drain(func(code EventCode, aux uint32) { l.logEvent(code, aux) })
			return
		case <-ticker.C:
			ring.Drain(func(code EventCode, aux uint32) { l.logEvent(code, aux) })
		}
	}
}

func (l *Logger) logEvent(code EventCode, aux uint32) {
	switch code {
	case EventUnderflow, EventOverflow, EventCommitBusy, EventUnderflowRateAlert:
		l.Warn(code.String(), "aux", aux)
	case EventWorkerCrash, EventRespawnFailed, EventPrimeTimeout:
		l.Error(code.String(), "aux", aux)
	default:
		l.Info(code.String(), "aux", aux)
	}
}
