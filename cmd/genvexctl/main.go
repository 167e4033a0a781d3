// cmd/genvexctl/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/genvex/tunnel/internal/config"
	"github.com/genvex/tunnel/internal/discovery"
	"github.com/genvex/tunnel/internal/engine"
	"github.com/genvex/tunnel/internal/history"
	"github.com/genvex/tunnel/internal/registers"
	"github.com/genvex/tunnel/internal/session"
	"github.com/genvex/tunnel/internal/status"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: genvexctl <config.yaml>")
	}
	cfgPath := os.Args[1]

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var hist *history.Store
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path)
		if err != nil {
			log.Fatalf("history store failed: %v", err)
		}
		defer hist.Close()
	}

	// --------------------
	// Build and run one engine per configured device
	// --------------------

	for _, d := range cfg.Devices {
		d := d
		logger := log.New(os.Stderr, fmt.Sprintf("[%s] ", d.ID), log.LstdFlags)

		addr, err := resolveAddr(ctx, d, logger)
		if err != nil {
			logger.Printf("discovery failed, skipping device: %v", err)
			continue
		}

		catalog, err := registers.ByModelName(d.Model)
		if err != nil {
			logger.Fatalf("unknown model: %v", err)
		}

		sess, err := session.New(session.Config{
			DeviceID:             d.ID,
			Email:                d.Email,
			Addr:                 addr,
			ConnectRetries:       d.Connect.Retries,
			ConnectRetryInterval: time.Duration(d.Connect.RetryIntervalMs) * time.Millisecond,
			RequestTimeout:       5 * time.Second,
			Logger:               logger,
		})
		if err != nil {
			logger.Fatalf("session init failed: %v", err)
		}

		e := engine.New(sess, catalog, engine.Config{
			PollInterval:         time.Duration(d.PollIntervalMs) * time.Millisecond,
			MaxConsecutiveErrors: d.MaxConsecutiveErrors,
			Logger:               logger,
		})

		sub := e.Subscribe()

		if err := e.Start(ctx); err != nil {
			logger.Printf("start failed: %v", err)
			sub.Close()
			continue
		}

		go watchEvents(d.ID, logger, hist, sub)
	}

	// --------------------
	// Block until signaled (daemon-safe, no deadlock)
	// --------------------
	<-ctx.Done()
	log.Print("shutting down")
}

// resolveAddr returns a fixed address as configured, or the result of a
// discovery broadcast when the device opted into discover mode. A
// device ID of "*" accepts the first responder seen; any other ID
// requires a matching DeviceID in the broadcast response.
func resolveAddr(ctx context.Context, d config.DeviceConfig, logger *log.Logger) (*net.UDPAddr, error) {
	if !d.Discover {
		return net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", d.IP, d.Port))
	}

	logger.Printf("discovering device %q", d.ID)
	devices, err := discovery.Broadcast(ctx, discovery.Config{
		Port:          d.Port,
		Timeout:       time.Duration(d.Discovery.TimeoutMs) * time.Millisecond,
		Retries:       d.Discovery.Retries,
		RetryInterval: time.Duration(d.Discovery.RetryIntervalMs) * time.Millisecond,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if d.ID == "*" || dev.DeviceID == d.ID {
			logger.Printf("discovered %s at %s", dev.DeviceID, dev.Addr)
			return dev.Addr, nil
		}
	}
	return nil, fmt.Errorf("no matching device found for id %q among %d responses", d.ID, len(devices))
}

// watchEvents drains one engine's subscription, logging every event,
// mirroring it into the history store when enabled, and feeding a
// status.Tracker that accounts seconds-in-error once per second while
// the device is unhealthy — the surviving piece of
// cmd/replicator/main.go's per-unit orchestrator loop.
func watchEvents(deviceID string, logger *log.Logger, hist *history.Store, sub *engine.Subscription) {
	tracker := status.NewTracker()
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	events := sub.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case engine.EventConnected:
				logger.Print("connected")
				tracker.OnConnected()
				if hist != nil {
					if err := hist.RecordConnected(deviceID); err != nil {
						logger.Printf("history: %v", err)
					}
				}
			case engine.EventDisconnected:
				logger.Printf("disconnected: %v", ev.Reason)
				tracker.OnDisconnected(ev.Reason)
				if hist != nil {
					if err := hist.RecordDisconnected(deviceID, ev.Reason); err != nil {
						logger.Printf("history: %v", err)
					}
				}
			case engine.EventModel:
				logger.Printf("model: device=%d/%d slave=%d/%d",
					ev.DeviceNumber, ev.DeviceModel, ev.SlaveDeviceNumber, ev.SlaveDeviceModel)
			case engine.EventData:
				logger.Printf("%s = %v %s", ev.Name, ev.Value, ev.Unit)
				if hist != nil {
					if err := hist.RecordData(deviceID, ev.Name, ev.Value, ev.Unit); err != nil {
						logger.Printf("history: %v", err)
					}
				}
			case engine.EventError:
				logger.Printf("error: %v", ev.Err)
				tracker.OnError(ev.Err)
				if hist != nil {
					if err := hist.RecordError(deviceID, ev.Err); err != nil {
						logger.Printf("history: %v", err)
					}
				}
			case engine.EventPolled:
				tracker.OnPolled()
			}
		case <-secTicker.C:
			snap := tracker.Tick()
			if snap.Health != status.HealthOK && snap.SecondsInError%60 == 0 {
				logger.Printf("unhealthy for %ds (last error: %s)", snap.SecondsInError, snap.LastErrorCode)
			}
		}
	}
}
