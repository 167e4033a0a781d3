// Package discovery implements broadcast and unicast UDP discovery of
// Genvex controllers on the legacy tunnel protocol (spec.md section
// 4.2). Discovery objects are short-lived and scoped to one operation —
// unlike a session, nothing here survives past the call that created it.
package discovery

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/genvex/tunnel/internal/tunnel"
)

// DefaultPort is the well-known UDP port the legacy protocol discovers
// and connects on.
const DefaultPort = 5570

const (
	defaultTimeout       = 5 * time.Second
	defaultRetries       = 3
	defaultRetryInterval = 1 * time.Second

	readBufferSize = 2048
)

// Device is one controller observed during a discovery operation.
type Device struct {
	DeviceID string
	Addr     *net.UDPAddr
}

// Config configures a discovery operation. Zero values are replaced with
// the defaults below by normalize.
type Config struct {
	Port          int
	Timeout       time.Duration
	Retries       int
	RetryInterval time.Duration
	Logger        *log.Logger
}

func (c *Config) normalize() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retries <= 0 {
		c.Retries = defaultRetries
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
}

// DiscoveryTimeoutError is returned by Probe when its timeout elapses
// with no valid reply.
type DiscoveryTimeoutError struct{}

func (e *DiscoveryTimeoutError) Error() string { return "discovery: timed out" }

// enableBroadcast sets SO_BROADCAST on conn so it may send to the limited
// broadcast address. Unlike most socket options, no third-party
// networking library in the retrieved corpus wraps this — it is reached
// directly via golang.org/x/sys/unix, the lowest-level socket-option
// package any example repo's dependency tree pulls in.
func enableBroadcast(conn *net.UDPConn) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var sockErr error
	if err := rawConn.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return sockErr
}

// Broadcast sends a discovery packet to the limited broadcast address at
// cfg.RetryInterval spacing for cfg.Retries attempts, collects every
// valid response until cfg.Timeout elapses, and returns the unique
// devices observed. An empty, non-nil slice is a valid outcome — unlike
// Probe, Broadcast never treats "nobody answered" as an error.
func Broadcast(ctx context.Context, cfg Config) ([]Device, error) {
	cfg.normalize()
	id := uuid.New()
	cfg.Logger.Printf("discovery_id=%s broadcast: starting on port %d", id, cfg.Port)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("discovery: binding socket: %w", err)
	}
	defer conn.Close()

	if err := enableBroadcast(conn); err != nil {
		return nil, fmt.Errorf("discovery: enabling broadcast: %w", err)
	}

	dest := &net.UDPAddr{IP: net.IPv4bcast, Port: cfg.Port}
	req := tunnel.BuildDiscoveryPacket("*")

	deadline := time.Now().Add(cfg.Timeout)
	_ = conn.SetDeadline(deadline)

	seen := make(map[string]Device)
	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, readBufferSize)
		for {
			n, addr, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			resp, perr := tunnel.ParseDiscoveryResponse(buf[:n])
			if perr != nil {
				continue // malformed or unrelated frame: dropped silently
			}
			key := resp.DeviceID + "@" + addr.String()
			if _, ok := seen[key]; !ok {
				dev := Device{DeviceID: resp.DeviceID, Addr: &net.UDPAddr{IP: addr.IP, Port: addr.Port}}
				seen[key] = dev
				cfg.Logger.Printf("discovery_id=%s device=%s addr=%s", id, dev.DeviceID, dev.Addr)
			}
		}
	}()

	cancelled := false
	for i := 0; i < cfg.Retries && !cancelled; i++ {
		if i > 0 {
			select {
			case <-time.After(cfg.RetryInterval):
			case <-ctx.Done():
				cancelled = true
			}
		}
		if !cancelled {
			if _, err := conn.WriteToUDP(req, dest); err != nil {
				cfg.Logger.Printf("discovery_id=%s broadcast: send error: %v", id, err)
			}
		}
	}

	select {
	case <-done:
	case <-ctx.Done():
		_ = conn.Close()
		<-done
	}

	devices := make([]Device, 0, len(seen))
	for _, d := range seen {
		devices = append(devices, d)
	}
	cfg.Logger.Printf("discovery_id=%s broadcast: found %d device(s)", id, len(devices))
	return devices, nil
}

// Probe sends a discovery packet directly to addr at cfg.RetryInterval
// spacing for cfg.Retries attempts and returns the first valid response,
// or DiscoveryTimeoutError once cfg.Timeout elapses with none. Used when
// broadcast is blocked across network segments (spec.md section 4.2).
func Probe(ctx context.Context, addr *net.UDPAddr, cfg Config) (*Device, error) {
	cfg.normalize()
	id := uuid.New()
	cfg.Logger.Printf("discovery_id=%s probe: starting against %s", id, addr)

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("discovery: binding socket: %w", err)
	}
	defer conn.Close()

	req := tunnel.BuildDiscoveryPacket("*")
	deadline := time.Now().Add(cfg.Timeout)
	_ = conn.SetDeadline(deadline)

	resultCh := make(chan Device, 1)
	go func() {
		buf := make([]byte, readBufferSize)
		for {
			n, _, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			resp, perr := tunnel.ParseDiscoveryResponse(buf[:n])
			if perr != nil {
				continue
			}
			cfg.Logger.Printf("discovery_id=%s probe: device=%s addr=%s", id, resp.DeviceID, addr)
			resultCh <- Device{DeviceID: resp.DeviceID, Addr: addr}
			return
		}
	}()

	go func() {
		for i := 0; i < cfg.Retries; i++ {
			if i > 0 {
				select {
				case <-time.After(cfg.RetryInterval):
				case <-ctx.Done():
					return
				}
			}
			if _, err := conn.WriteToUDP(req, addr); err != nil {
				cfg.Logger.Printf("discovery_id=%s probe: send error: %v", id, err)
				return
			}
		}
	}()

	select {
	case dev := <-resultCh:
		return &dev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Until(deadline)):
		cfg.Logger.Printf("discovery_id=%s probe: timed out", id)
		return nil, &DiscoveryTimeoutError{}
	}
}
