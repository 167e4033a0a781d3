// Package session implements the stateful per-device actor described in
// spec.md section 4.3: one goroutine owns the UDP socket, the client
// nonce, the negotiated server nonce, the sequence counter, the
// pending-request table, and the keep-alive timer. Every other field is
// confined to that goroutine; public methods communicate with it over an
// unbuffered action channel, which is the "dedicated actor task with a
// message channel" spec.md section 5 calls for on a thread-per-task
// runtime.
package session

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"net"
	"time"

	"github.com/genvex/tunnel/internal/registers"
	"github.com/genvex/tunnel/internal/tunnel"
)

const (
	userSeqStart      uint16 = 300
	keepAliveSeqStart uint16 = 100
	keepAliveSeqEnd   uint16 = 199
	modelPingSeq      uint16 = 50

	defaultConnectRetries       = 5
	defaultConnectRetryInterval = 1 * time.Second
	defaultRequestTimeout       = 5 * time.Second
	keepAliveInterval           = 10 * time.Second

	readBufferSize = 2048
)

// Config configures a Session.
type Config struct {
	DeviceID string
	Email    string
	Addr     *net.UDPAddr

	ConnectRetries       int
	ConnectRetryInterval time.Duration
	RequestTimeout       time.Duration

	Logger *log.Logger
}

type pendingResult struct {
	cmdBytes []byte
	err      error
}

type pendingEntry struct {
	timer      *time.Timer
	done       chan pendingResult
	timeoutErr func(seq uint16) error
}

// Session is a stateful actor bound to one remote device address.
type Session struct {
	cfg    Config
	logger *log.Logger

	act    chan func()
	events chan Event
	closed chan struct{}

	// Everything below is confined to the run() goroutine.
	conn       *net.UDPConn
	clientID   uint32
	serverID   uint32
	state      State
	seq        uint16
	kaSeq      uint16
	pending    map[uint16]*pendingEntry
	stopReader context.CancelFunc
}

// New creates an unconnected Session bound to cfg.Addr. Call Connect to
// establish it.
func New(cfg Config) (*Session, error) {
	if cfg.Addr == nil {
		return nil, &tunnel.InvalidArgumentError{Field: "addr"}
	}
	if cfg.Email == "" {
		return nil, &tunnel.InvalidArgumentError{Field: "email"}
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = defaultConnectRetries
	}
	if cfg.ConnectRetryInterval <= 0 {
		cfg.ConnectRetryInterval = defaultConnectRetryInterval
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	var idBuf [4]byte
	if _, err := rand.Read(idBuf[:]); err != nil {
		return nil, fmt.Errorf("session: generating client id: %w", err)
	}

	s := &Session{
		cfg:      cfg,
		logger:   cfg.Logger,
		act:      make(chan func()),
		events:   make(chan Event, 32),
		closed:   make(chan struct{}),
		clientID: binary.BigEndian.Uint32(idBuf[:]),
		state:    StateIdle,
		seq:      userSeqStart,
		kaSeq:    keepAliveSeqStart,
		pending:  make(map[uint16]*pendingEntry),
	}
	go s.run()
	return s, nil
}

// Events returns the session's event stream. It is closed once the
// session reaches CLOSED.
func (s *Session) Events() <-chan Event { return s.events }

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	result := make(chan State, 1)
	s.actSafe(func() { result <- s.state })
	select {
	case st := <-result:
		return st
	case <-s.closed:
		return StateClosed
	}
}

func (s *Session) run() {
	for {
		select {
		case fn := <-s.act:
			fn()
		case <-s.closed:
			return
		}
	}
}

// actSafe dispatches fn to the actor goroutine, or drops it silently if
// the session is already closed.
func (s *Session) actSafe(fn func()) {
	select {
	case s.act <- fn:
	case <-s.closed:
	}
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.logger.Printf("session: event channel full, dropping kind=%d", ev.Kind)
	}
}

// Connect establishes the session: binds the socket, sends U_CONNECT,
// retransmits per spec.md section 4.3, and on success starts the
// keep-alive timer and issues the model-info ping.
func (s *Session) Connect(ctx context.Context) error {
	errCh := make(chan error, 1)
	select {
	case s.act <- func() { errCh <- s.connectLocked() }:
	case <-s.closed:
		return &SocketClosedError{}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) connectLocked() error {
	if s.state != StateIdle {
		return fmt.Errorf("session: connect called in state %s", s.state)
	}
	s.state = StateConnecting

	conn, err := net.DialUDP("udp4", nil, s.cfg.Addr)
	if err != nil {
		cause := &SocketError{Cause: err}
		s.teardown(cause, false)
		return cause
	}
	s.conn = conn

	req := tunnel.BuildConnectPacket(s.clientID, s.cfg.Email)
	deadline := time.Now().Add(
		time.Duration(s.cfg.ConnectRetries)*s.cfg.ConnectRetryInterval + 2*time.Second,
	)

	var resp tunnel.ConnectResponse
	connected := false
	buf := make([]byte, readBufferSize)

	for attempt := 0; attempt < s.cfg.ConnectRetries && !connected && time.Now().Before(deadline); attempt++ {
		if _, err := conn.Write(req); err != nil {
			cause := &SocketError{Cause: err}
			s.teardown(cause, false)
			return cause
		}

		attemptDeadline := time.Now().Add(s.cfg.ConnectRetryInterval)
		if attemptDeadline.After(deadline) {
			attemptDeadline = deadline
		}

		for time.Now().Before(attemptDeadline) {
			_ = conn.SetReadDeadline(attemptDeadline)
			n, err := conn.Read(buf)
			if err != nil {
				break // timeout or transient error: fall through to next retransmit
			}
			r, perr := tunnel.ParseConnectResponse(buf[:n])
			if perr != nil {
				// Malformed or unrelated frame: dropped silently (spec.md section 7).
				continue
			}
			resp = r
			connected = true
			break
		}
	}

	if !connected {
		cause := &ConnectTimeoutError{}
		s.teardown(cause, false)
		return cause
	}

	s.serverID = resp.ServerID
	s.state = StateConnected

	s.startReader()
	s.scheduleKeepAlive()
	s.emit(Event{Kind: EventConnected})
	s.sendPing(modelPingSeq, false)

	return nil
}

func (s *Session) startReader() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopReader = cancel
	conn := s.conn

	go func() {
		buf := make([]byte, readBufferSize)
		for {
			_ = conn.SetReadDeadline(time.Time{})
			n, err := conn.Read(buf)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				s.actSafe(func() { s.handleSocketError(err) })
				return
			}
			frame := make([]byte, n)
			copy(frame, buf[:n])
			s.actSafe(func() { s.handleFrame(frame) })
		}
	}()
}

func (s *Session) scheduleKeepAlive() {
	time.AfterFunc(keepAliveInterval, func() {
		s.actSafe(s.fireKeepAlive)
	})
}

func (s *Session) fireKeepAlive() {
	if s.state != StateConnected {
		return
	}
	seq := s.nextKeepAliveSeq()
	s.sendPing(seq, true)
	s.scheduleKeepAlive()
}

func (s *Session) sendPing(seq uint16, tag bool) {
	cmd := tunnel.BuildPingCommand()
	pkt := tunnel.BuildDataPacket(s.clientID, s.serverID, seq, cmd, tag)
	if _, err := s.conn.Write(pkt); err != nil {
		s.handleSocketError(err)
	}
}

func (s *Session) nextUserSeq() uint16 {
	seq := s.seq
	s.seq++
	if s.seq < userSeqStart {
		s.seq = userSeqStart
	}
	return seq
}

func (s *Session) nextKeepAliveSeq() uint16 {
	seq := s.kaSeq
	s.kaSeq++
	if s.kaSeq > keepAliveSeqEnd {
		s.kaSeq = keepAliveSeqStart
	}
	return seq
}

func (s *Session) handleFrame(frame []byte) {
	if s.state != StateConnected {
		return
	}
	hdr, err := tunnel.ParseHeader(frame)
	if err != nil {
		return // malformed frame: dropped silently
	}
	switch hdr.Type {
	case tunnel.PacketUConnect:
		// RESPONSE after connect: ignored.
	case tunnel.PacketUAlive:
		// Acknowledged by ignoring.
	case tunnel.PacketData:
		s.handleDataFrame(frame)
	}
}

func (s *Session) handleDataFrame(frame []byte) {
	seq, cmdBytes, err := tunnel.ParseDataResponse(frame)
	if err != nil {
		return // malformed frame: dropped silently
	}

	switch {
	case seq == modelPingSeq:
		info := tunnel.ParsePingResponse(cmdBytes)
		s.emit(Event{Kind: EventModel, Model: info})
	case seq >= keepAliveSeqStart && seq <= keepAliveSeqEnd:
		// Keep-alive reply: discard.
	default:
		p, ok := s.pending[seq]
		if !ok {
			s.emit(Event{Kind: EventData, SeqID: seq})
			return
		}
		p.timer.Stop()
		delete(s.pending, seq)
		p.done <- pendingResult{cmdBytes: cmdBytes}
	}
}

func (s *Session) fireTimeout(seq uint16) {
	p, ok := s.pending[seq]
	if !ok {
		return
	}
	delete(s.pending, seq)
	p.done <- pendingResult{err: p.timeoutErr(seq)}
}

func (s *Session) handleSocketError(err error) {
	if s.state == StateClosed {
		return
	}
	s.teardown(&SocketError{Cause: err}, true)
}

// Disconnect tears the session down: stops the keep-alive, closes the
// socket, and drains the pending-request table, rejecting every
// outstanding caller with SocketClosedError (spec.md section 5's
// permitted refinement over waiting for each request's own timeout).
func (s *Session) Disconnect() error {
	done := make(chan struct{}, 1)
	select {
	case s.act <- func() {
		s.teardown(&SocketClosedError{}, false)
		done <- struct{}{}
	}:
		<-done
	case <-s.closed:
	}
	return nil
}

func (s *Session) teardown(cause error, emitError bool) {
	if s.state == StateClosed {
		return
	}
	if s.stopReader != nil {
		s.stopReader()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	for seq, p := range s.pending {
		p.timer.Stop()
		p.done <- pendingResult{err: cause}
		delete(s.pending, seq)
	}
	s.state = StateClosed

	if emitError {
		s.emit(Event{Kind: EventError, Err: cause})
	}
	s.emit(Event{Kind: EventDisconnected, Err: cause})
	close(s.events)
	close(s.closed)
}

// request performs the common shape of the three data-bearing operations:
// allocate a sequence number, send a packet, install a pending entry with
// a timeout, and wait for resolution (spec.md section 4.3, "Request
// API").
func (s *Session) request(ctx context.Context, build func(seq uint16) []byte, timeoutErr func(seq uint16) error) ([]byte, error) {
	resultCh := make(chan pendingResult, 1)

	dispatch := func() {
		if s.state != StateConnected {
			resultCh <- pendingResult{err: &NotConnectedError{}}
			return
		}
		seq := s.nextUserSeq()
		pkt := build(seq)
		if _, err := s.conn.Write(pkt); err != nil {
			resultCh <- pendingResult{err: &SocketError{Cause: err}}
			s.handleSocketError(err)
			return
		}

		timer := time.AfterFunc(s.cfg.RequestTimeout, func() {
			s.actSafe(func() { s.fireTimeout(seq) })
		})
		s.pending[seq] = &pendingEntry{timer: timer, done: resultCh, timeoutErr: timeoutErr}
	}

	select {
	case s.act <- dispatch:
	case <-s.closed:
		return nil, &SocketClosedError{}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-resultCh:
		return r.cmdBytes, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadDatapoints issues a CMD_DATAPOINT_READLIST request for entries, in
// order, and returns the positionally-decoded raw values.
func (s *Session) ReadDatapoints(ctx context.Context, entries []registers.Datapoint) ([]int16, error) {
	reads := make([]tunnel.DatapointRead, len(entries))
	for i, e := range entries {
		reads[i] = tunnel.DatapointRead{Obj: 0, Address: e.Address}
	}
	cmdBytes, err := s.request(ctx,
		func(seq uint16) []byte {
			cmd := tunnel.BuildDatapointReadListCommand(reads)
			return tunnel.BuildDataPacket(s.clientID, s.serverID, seq, cmd, false)
		},
		func(seq uint16) error { return &ReadTimeoutError{Seq: seq} },
	)
	if err != nil {
		return nil, err
	}
	return tunnel.ParseDatapointValues(cmdBytes)
}

// ReadSetpoints issues a CMD_SETPOINT_READLIST request for entries, in
// order, and returns the positionally-decoded raw values.
func (s *Session) ReadSetpoints(ctx context.Context, entries []registers.Setpoint) ([]uint16, error) {
	reads := make([]tunnel.SetpointRead, len(entries))
	for i, e := range entries {
		reads[i] = tunnel.SetpointRead{Obj: 0, Address: e.ReadAddress}
	}
	cmdBytes, err := s.request(ctx,
		func(seq uint16) []byte {
			cmd := tunnel.BuildSetpointReadListCommand(reads)
			return tunnel.BuildDataPacket(s.clientID, s.serverID, seq, cmd, false)
		},
		func(seq uint16) error { return &ReadTimeoutError{Seq: seq} },
	)
	if err != nil {
		return nil, err
	}
	return tunnel.ParseSetpointValues(cmdBytes)
}

// WriteSetpoints issues a CMD_SETPOINT_WRITELIST request. It resolves as
// soon as any matching-seq DATA reply arrives; the body is not inspected
// beyond confirming correlation (spec.md section 4.3).
func (s *Session) WriteSetpoints(ctx context.Context, entries []tunnel.SetpointWrite) error {
	_, err := s.request(ctx,
		func(seq uint16) []byte {
			cmd := tunnel.BuildSetpointWriteListCommand(entries)
			return tunnel.BuildDataPacket(s.clientID, s.serverID, seq, cmd, false)
		},
		func(seq uint16) error { return &WriteTimeoutError{Seq: seq} },
	)
	return err
}
