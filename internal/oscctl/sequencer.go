package oscctl

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// stepsPerBeat is fixed at 16th notes: a 16-character pattern spans
// one 4/4 bar, so spec.md's worked scenario 5 pattern
// "X...X...X...X..." fires once per beat, four times per bar.
const stepsPerBeat = 4

// track holds one sequencer lane's pattern and note material.
type track struct {
	voiceID    string
	velocities []float32 // parsed from the X/x/. pattern grammar
	baseFreq   float32
	filterFreq float32
	notes      []float32
	step       int
}

// sequencer drives gate/param commands for its tracks off its own
// step clock (spec.md describes it as "an external collaborator; the
// supervisor only consumes the gates/params it emits" — it has no
// access to the audio worker's own tick count, so it paces itself
// against a wall-clock deadline the same way worker.Run paces the DSP
// tick, just at the musical step period instead of the buffer period).
type sequencer struct {
	router *Router

	mu     sync.Mutex
	bpm    float64
	swing  float64
	tracks map[string]*track
	order  []string

	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
}

func newSequencer(router *Router) *sequencer {
	return &sequencer{
		router: router,
		bpm:    120,
		tracks: make(map[string]*track),
	}
}

func parsePattern(pattern string) ([]float32, error) {
	if pattern == "" {
		return nil, fmt.Errorf("oscctl: empty pattern")
	}
	vel := make([]float32, len(pattern))
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case 'X':
			vel[i] = 1.0
		case 'x':
			vel[i] = 0.6
		case '.':
			vel[i] = 0
		default:
			return nil, fmt.Errorf("oscctl: invalid pattern character %q at %d", pattern[i], i)
		}
	}
	return vel, nil
}

func (s *sequencer) AddTrack(id, voiceID, pattern string, baseFreq, filterFreq float32, notes []float32) error {
	vel, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tracks[id]; !exists {
		s.order = append(s.order, id)
	}
	s.tracks[id] = &track{voiceID: voiceID, velocities: vel, baseFreq: baseFreq, filterFreq: filterFreq, notes: notes}
	return nil
}

func (s *sequencer) RemoveTrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tracks[id]; !ok {
		return
	}
	delete(s.tracks, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *sequencer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracks = make(map[string]*track)
	s.order = nil
}

func (s *sequencer) UpdatePattern(id, pattern string) error {
	vel, err := parsePattern(pattern)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[id]
	if !ok {
		return fmt.Errorf("oscctl: /seq/update/pattern: unknown track %q", id)
	}
	t.velocities = vel
	if t.step >= len(vel) {
		t.step = 0
	}
	return nil
}

func (s *sequencer) UpdateNotes(id string, notes []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tracks[id]
	if !ok {
		return fmt.Errorf("oscctl: /seq/update/notes: unknown track %q", id)
	}
	t.notes = notes
	return nil
}

func (s *sequencer) SetBPM(bpm float64) error {
	if bpm < 30 || bpm > 300 {
		return fmt.Errorf("oscctl: bpm %.1f outside [30,300]", bpm)
	}
	s.mu.Lock()
	s.bpm = bpm
	s.mu.Unlock()
	return nil
}

func (s *sequencer) SetSwing(swing float64) error {
	if swing < 0 || swing > 0.6 {
		return fmt.Errorf("oscctl: swing %.2f outside [0,0.6]", swing)
	}
	s.mu.Lock()
	s.swing = swing
	s.mu.Unlock()
	return nil
}

func (s *sequencer) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.stop, s.done)
}

func (s *sequencer) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	close(s.stop)
	<-s.done
}

// run paces steps against a deadline, the same drift-free style as
// worker.Worker.Run, recomputing the step period from the current BPM
// every step so a live /seq/bpm change takes effect on the next step
// boundary rather than only after a restart.
func (s *sequencer) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	deadline := time.Now()
	step := 0
	for {
		select {
		case <-stop:
			return
		default:
		}

		s.mu.Lock()
		bpm, swing := s.bpm, s.swing
		s.mu.Unlock()

		basePeriod := time.Duration(60.0 / bpm / stepsPerBeat * float64(time.Second))
		period := basePeriod
		if step%2 == 1 {
			period += time.Duration(0.5 * swing * float64(basePeriod))
		}

		s.fireStep(step, basePeriod)

		step++
		deadline = deadline.Add(period)
		if sleep := time.Until(deadline); sleep > 0 {
			select {
			case <-time.After(sleep):
			case <-stop:
				return
			}
		} else {
			deadline = time.Now()
		}
	}
}

// fireStep triggers every track's current step together so multi-track
// patterns co-align, per spec.md §8 invariant 7.
func (s *sequencer) fireStep(step int, basePeriod time.Duration) {
	s.mu.Lock()
	type fire struct {
		voiceID string
		vel     float32
		freq    float32
		filter  float32
	}
	var fires []fire
	for _, id := range s.order {
		t := s.tracks[id]
		if len(t.velocities) == 0 {
			continue
		}
		idx := step % len(t.velocities)
		vel := t.velocities[idx]
		if vel <= 0 {
			continue
		}
		freq := t.baseFreq
		if len(t.notes) > 0 {
			freq = t.notes[idx%len(t.notes)]
		}
		fires = append(fires, fire{voiceID: t.voiceID, vel: vel, freq: freq, filter: t.filterFreq})
	}
	s.mu.Unlock()

	for _, f := range fires {
		if f.freq > 0 {
			s.router.writeParam(f.voiceID, "freq", f.freq)
		}
		if f.filter > 0 {
			s.router.writeParam(f.voiceID, "filter/freq", f.filter)
		}
		s.router.writeParam(f.voiceID, "amp", f.vel)
		s.router.writeGate(f.voiceID, true)
	}

	if len(fires) == 0 {
		return
	}
	hold := basePeriod / 2
	go func(voiceIDs []fire) {
		time.Sleep(hold)
		for _, f := range voiceIDs {
			s.router.writeGate(f.voiceID, false)
		}
	}(fires)
}
