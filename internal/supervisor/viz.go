package supervisor

import (
	"math"
	"os"
	"time"

	"github.com/hypebeast/go-osc/osc"
)

// vizBroadcastPeriod is "roughly 10 Hz" per spec.md §4.5.
const vizBroadcastPeriod = 100 * time.Millisecond

// spectrumBands is the fixed band count of /viz/spectrum.
const spectrumBands = 8

// spectrumBandEdges are the eight log-spaced band center frequencies
// (Hz), chosen to span a typical synth's useful range from bass to
// presence without needing a full FFT: each band's magnitude is
// estimated with a single Goertzel bin, which is exact for the one
// frequency it targets and cheap enough to run at 10 Hz on a plain
// audio snapshot.
var spectrumBandEdges = [spectrumBands]float64{60, 150, 350, 700, 1400, 2800, 5600, 11200}

// VizBroadcaster periodically sends the four per-voice peaks the audio
// callback records and an 8-band spectrum computed from the
// supervisor's frame snapshot as two UDP packets (grounded on the
// pack's go-osc client usage in model.go), plus rewrites
// engine_status.txt. The master peak the callback also records is not
// part of either packet.
type VizBroadcaster struct {
	sv         *Supervisor
	client     *osc.Client
	statusPath string
	stop       chan struct{}
}

// NewVizBroadcaster builds a broadcaster targeting host:port.
func NewVizBroadcaster(sv *Supervisor, host string, port int, statusPath string) *VizBroadcaster {
	return &VizBroadcaster{
		sv:         sv,
		client:     osc.NewClient(host, port),
		statusPath: statusPath,
		stop:       make(chan struct{}),
	}
}

// Run broadcasts until Stop is called.
func (v *VizBroadcaster) Run() {
	ticker := time.NewTicker(vizBroadcastPeriod)
	defer ticker.Stop()

	scratch := make([]float32, v.sv.bufferSize)
	for {
		select {
		case <-v.stop:
			return
		case <-ticker.C:
			v.tick(scratch)
		}
	}
}

// Stop ends the broadcast loop.
func (v *VizBroadcaster) Stop() { close(v.stop) }

func (v *VizBroadcaster) tick(scratch []float32) {
	levels := osc.NewMessage("/viz/levels")
	for i := range v.sv.voicePeaks {
		levels.Append(math.Float32frombits(v.sv.voicePeaks[i].Load()))
	}
	_ = v.client.Send(levels)

	v.sv.snapshot.read(scratch)
	spectrum := osc.NewMessage("/viz/spectrum")
	for _, freq := range spectrumBandEdges {
		mag := goertzelMagnitude(scratch, v.sv.sampleRate, freq)
		spectrum.Append(float32(normalizeSpectrumBand(mag)))
	}
	_ = v.client.Send(spectrum)

	if v.statusPath != "" {
		_ = os.WriteFile(v.statusPath, []byte(v.sv.Status().Render()), 0644)
	}
}

// normalizeSpectrumBand maps a Goertzel magnitude (about 0.5 for a
// full-scale sine concentrated in one bin) into [0,1], clamping a
// louder or multi-tone signal rather than overflowing the wire format.
func normalizeSpectrumBand(mag float64) float64 {
	v := mag * 4 // a single sine's Goertzel magnitude is ~0.5 of its amplitude; scale up for visual headroom
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// goertzelMagnitude estimates the normalized magnitude of freqHz in
// frame, sampled at sampleRate, using the Goertzel algorithm: a
// single-bin DFT that avoids computing a full spectrum when only one
// frequency's energy is needed.
func goertzelMagnitude(frame []float32, sampleRate, freqHz float64) float64 {
	n := len(frame)
	if n == 0 {
		return 0
	}
	k := freqHz * float64(n) / sampleRate
	omega := 2 * math.Pi * k / float64(n)
	coeff := 2 * math.Cos(omega)

	var s0, s1, s2 float64
	for _, x := range frame {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	real := s1 - s2*math.Cos(omega)
	imag := s2 * math.Sin(omega)
	mag := math.Sqrt(real*real+imag*imag) / float64(n)
	return mag
}
