package supervisor

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// Device wraps a portaudio output stream bound to the supervisor's
// AudioCallback. Grounded on the pack's client-audio.go StreamParameters
// pattern, adapted from its blocking Read/Write style to portaudio's
// callback-style OpenStream, which is what lets the engine satisfy
// spec.md §4.5's non-suspendable callback requirement.
type Device struct {
	stream *portaudio.Stream
}

// OpenDefaultOutput opens the default output device at sampleRate with
// exactly bufferSize frames per callback, invoking cb once per buffer
// with a pre-bound slice the caller must fill in place.
func OpenDefaultOutput(sampleRate float64, bufferSize int, cb func(out []float32)) (*Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("supervisor: portaudio init: %w", err)
	}

	outputDev, err := portaudio.DefaultOutputDevice()
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("supervisor: default output device: %w", err)
	}

	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   outputDev,
			Channels: 1,
			Latency:  outputDev.DefaultLowOutputLatency,
		},
		SampleRate:      sampleRate,
		FramesPerBuffer: bufferSize,
	}

	stream, err := portaudio.OpenStream(params, func(out []float32) {
		cb(out)
	})
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("supervisor: open stream: %w", err)
	}

	return &Device{stream: stream}, nil
}

// Start begins audio delivery.
func (d *Device) Start() error {
	if err := d.stream.Start(); err != nil {
		return fmt.Errorf("supervisor: start stream: %w", err)
	}
	return nil
}

// Close stops and closes the stream and terminates portaudio.
func (d *Device) Close() error {
	if err := d.stream.Stop(); err != nil {
		return fmt.Errorf("supervisor: stop stream: %w", err)
	}
	if err := d.stream.Close(); err != nil {
		return fmt.Errorf("supervisor: close stream: %w", err)
	}
	return portaudio.Terminate()
}
