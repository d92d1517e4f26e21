// Command chronus runs the headless, OSC-controlled modular synth
// engine: it owns the audio device, the dual-slot DSP supervisor, the
// OSC control-plane router, the visualizer broadcast, and mDNS
// advertisement, and runs until told to stop.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/norsninja/chronus/internal/config"
	"github.com/norsninja/chronus/internal/discovery"
	"github.com/norsninja/chronus/internal/logging"
	"github.com/norsninja/chronus/internal/oscctl"
	"github.com/norsninja/chronus/internal/supervisor"
	"github.com/spf13/pflag"
)

func main() {
	// A first, lenient pass just to find -c/--config-file before the
	// full flag set (which depends on the file's defaults) is
	// registered. Unknown flags are ignored here; the real parse below
	// reports them.
	preScan := pflag.NewFlagSet("chronus-prescan", pflag.ContinueOnError)
	preScan.ParseErrorsWhitelist.UnknownFlags = true
	preScan.Usage = func() {}
	configFile := preScan.StringP("config-file", "c", "", "YAML configuration file (optional).")
	_ = preScan.Parse(os.Args[1:])

	cfg := config.Default()
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "chronus: %v\n", err)
			os.Exit(1)
		}
	}

	pflag.StringP("config-file", "c", *configFile, "YAML configuration file (optional).")
	logLevel := pflag.StringP("log-level", "l", "info", "Log level: debug, info, warn, or error.")
	discoveryName := pflag.StringP("discovery-name", "n", "", "mDNS service name. Defaults to chronus-<hostname>.")
	noDiscovery := pflag.Bool("no-discovery", false, "Disable mDNS advertisement.")
	cfg.RegisterFlags(pflag.CommandLine)

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "chronus - a headless, OSC-controlled modular synthesizer engine.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: chronus [options]\n\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "chronus: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New()
	logger.SetLevel(*logLevel)

	sv, err := supervisor.New(cfg, logger.With("supervisor"))
	if err != nil {
		logger.Error("failed to start supervisor", "error", err)
		os.Exit(1)
	}
	defer sv.Close()

	device, err := supervisor.OpenDefaultOutput(float64(cfg.Audio.SampleRate), cfg.Audio.BufferSize, sv.AudioCallback)
	if err != nil {
		logger.Error("failed to open audio output", "error", err)
		os.Exit(1)
	}
	if err := device.Start(); err != nil {
		logger.Error("failed to start audio stream", "error", err)
		os.Exit(1)
	}
	defer device.Close() //nolint:errcheck

	router := oscctl.NewRouter(sv, logger.With("oscctl"), cfg.OSC.Host, cfg.OSC.Port, cfg.Viz.Host, cfg.Viz.Port)
	go func() {
		if err := router.ListenAndServe(); err != nil {
			logger.Error("osc router stopped", "error", err)
		}
	}()
	defer router.Stop()

	var viz *supervisor.VizBroadcaster
	if cfg.Viz.Enable {
		viz = supervisor.NewVizBroadcaster(sv, cfg.Viz.Host, cfg.Viz.Port, "engine_status.txt")
		go viz.Run()
		defer viz.Stop()
	}

	if !*noDiscovery {
		name := *discoveryName
		if name == "" {
			if host, err := os.Hostname(); err == nil {
				name = "chronus-" + host
			} else {
				name = "chronus"
			}
		}
		adv, err := discovery.New(logger.With("discovery"))
		if err != nil {
			logger.Warn("mDNS advertisement unavailable", "error", err)
		} else {
			if err := adv.AddService(name, discovery.OSCServiceType, cfg.OSC.Port); err != nil {
				logger.Warn("failed to register OSC service", "error", err)
			}
			if cfg.Viz.Enable {
				if err := adv.AddService(name, discovery.VizServiceType, cfg.Viz.Port); err != nil {
					logger.Warn("failed to register viz service", "error", err)
				}
			}
			adv.Start()
			defer adv.Stop()
		}
	}

	logger.Info("chronus running",
		"sample_rate", cfg.Audio.SampleRate,
		"buffer_size", cfg.Audio.BufferSize,
		"osc", fmt.Sprintf("%s:%d", cfg.OSC.Host, cfg.OSC.Port),
		"viz_enabled", cfg.Viz.Enable,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig.String())
}
