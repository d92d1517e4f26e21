// Package discovery announces the engine's OSC control port and viz
// broadcast port over mDNS/DNS-SD, so a terminal visualizer or an AI
// collaborator on the same network can find a running engine without
// being told its host and port up front (spec.md §9). Grounded on the
// teacher's dns_sd.go, which uses the same pure-Go
// github.com/brutella/dnssd responder for its single KISS-over-TCP
// service; this package runs one responder shared by two services.
package discovery

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
	"github.com/norsninja/chronus/internal/logging"
)

// OSCServiceType and VizServiceType are the DNS-SD service types
// advertised for the control and visualization ports respectively.
const (
	OSCServiceType = "_chronus-osc._udp"
	VizServiceType = "_chronus-viz._udp"
)

// Advertiser runs a DNS-SD responder for as many services as have been
// added to it before Start is called.
type Advertiser struct {
	logger    *logging.Logger
	responder dnssd.Responder
	cancel    context.CancelFunc
	done      chan struct{}
}

// New builds an Advertiser with a fresh responder. The responder is
// not started until Start is called.
func New(logger *logging.Logger) (*Advertiser, error) {
	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("discovery: new responder: %w", err)
	}
	return &Advertiser{logger: logger, responder: rp}, nil
}

// AddService registers a service of the given type and port under
// name, to be announced once Start runs. Safe to call any number of
// times before Start.
func (a *Advertiser) AddService(name, serviceType string, port int) error {
	cfg := dnssd.Config{ //nolint:exhaustruct
		Name: name,
		Type: serviceType,
		Port: port,
	}
	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return fmt.Errorf("discovery: new service %s: %w", serviceType, err)
	}
	if _, err := a.responder.Add(sv); err != nil {
		return fmt.Errorf("discovery: add service %s: %w", serviceType, err)
	}
	a.logger.Info("advertising service", "name", name, "type", serviceType, "port", port)
	return nil
}

// Start responds to mDNS queries in the background until Stop is
// called.
func (a *Advertiser) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.done = make(chan struct{})

	go func() {
		defer close(a.done)
		if err := a.responder.Respond(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("dns-sd responder stopped", "error", err)
		}
	}()
}

// Stop shuts the responder down and waits for its goroutine to exit.
func (a *Advertiser) Stop() {
	if a.cancel == nil {
		return
	}
	a.cancel()
	<-a.done
}
