// Package tascam implements a persistent, self-healing TCP driver for
// the Tascam BD-MP4K Blu-ray player's "!7" control protocol. The
// driver keeps a live connection across power cycles and network
// flakiness, exposes imperative transport/navigation commands, and
// maintains a continuously updated state snapshot fed by both
// solicited responses and unsolicited push traffic.
package tascam

import (
	"errors"
	"io"
	"log"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// Timing defaults. The device is slow to ack and slower to boot; these
// match its observed behavior rather than any protocol document.
const (
	DefaultDialTimeout     = 1500 * time.Millisecond
	HeartbeatDialTimeout   = 1 * time.Second
	DefaultAckTimeout      = 1 * time.Second
	DefaultCooldownWindow  = 15 * time.Second
	DefaultOfflineBackoff  = 10 * time.Second
	DefaultPollCadence     = 2 * time.Second
	DefaultQueryDelay      = 30 * time.Millisecond
	DefaultWakeAttempts    = 7
	DefaultWakeInterval    = 2 * time.Second
	shutdownSettleDelay    = 500 * time.Millisecond
	readBufferSize         = 4096
	pollFailureThreshold   = 2
)

// Options tunes driver construction. The zero value gives production
// defaults for everything.
type Options struct {
	// Port overrides the default control port (9030).
	Port int

	DialTimeout    time.Duration
	AckTimeout     time.Duration
	CooldownWindow time.Duration
	OfflineBackoff time.Duration
	PollCadence    time.Duration
	QueryDelay     time.Duration
	WakeAttempts   int
	WakeInterval   time.Duration

	Logger *log.Logger

	// DisableHeartbeat skips starting the background supervision loop.
	// Only used by tests that drive the controller directly.
	DisableHeartbeat bool
}

func (o *Options) applyDefaults() {
	if o.Port == 0 {
		o.Port = protocol.DefaultPort
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.AckTimeout == 0 {
		o.AckTimeout = DefaultAckTimeout
	}
	if o.CooldownWindow == 0 {
		o.CooldownWindow = DefaultCooldownWindow
	}
	if o.OfflineBackoff == 0 {
		o.OfflineBackoff = DefaultOfflineBackoff
	}
	if o.PollCadence == 0 {
		o.PollCadence = DefaultPollCadence
	}
	if o.QueryDelay == 0 {
		o.QueryDelay = DefaultQueryDelay
	}
	if o.WakeAttempts == 0 {
		o.WakeAttempts = DefaultWakeAttempts
	}
	if o.WakeInterval == 0 {
		o.WakeInterval = DefaultWakeInterval
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
}

// Controller drives a single BD-MP4K unit. All state is owned by the
// controller; callers read snapshots and receive change notifications.
type Controller struct {
	host string
	mac  string
	opts Options

	logger *log.Logger
	subs   *subscriberRegistry
	timers *timerSet

	// connectMu collapses concurrent connect attempts into one.
	// cleanupMu serializes cleanup separately so teardown can run
	// safely while a connect is mid-flight elsewhere.
	connectMu sync.Mutex
	cleanupMu sync.Mutex

	// sendMu serializes command issuance: only one command may be in
	// flight at a time, so overlapping callers queue rather than
	// clobber each other's pending slot.
	sendMu sync.Mutex

	mu               sync.Mutex // guards everything below
	conn             net.Conn
	pending          chan bool
	heartbeatRunning bool
	heartbeatStop    chan struct{}
	shuttingDown     bool
	wakingUp         bool
	state            deviceState
	onDataChanged    func()
}

// New constructs a driver for the unit at host and starts the
// background heartbeat. The hardware address may be empty; power-on
// via network wake is then unavailable.
func New(host, mac string, opts Options) *Controller {
	opts.applyDefaults()

	c := &Controller{
		host:   host,
		mac:    mac,
		opts:   opts,
		logger: opts.Logger,
		subs:   newSubscriberRegistry(opts.Logger),
		timers: newTimerSet(),
		state:  newDeviceState(),
	}

	if !opts.DisableHeartbeat {
		c.ensureHeartbeat()
	}
	return c
}

// NewConnected constructs a driver and performs the initial connection
// before returning. A false connected result is not fatal: the
// heartbeat keeps retrying in the background.
func NewConnected(host, mac string, opts Options) (*Controller, bool) {
	c := New(host, mac, opts)
	return c, c.connect(c.opts.DialTimeout)
}

// Host returns the unit's address.
func (c *Controller) Host() string { return c.host }

// HardwareAddress returns the unit's link-layer address, if known.
func (c *Controller) HardwareAddress() string { return c.mac }

// IsConnected reports whether the socket is open and the unit is not
// inside a shutdown cooldown window.
func (c *Controller) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.shuttingDown
}

// Snapshot returns a copy of the current device state and flags.
// Socket-open is derived from the live handle, never stored.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	socketOpen := c.conn != nil
	return Snapshot{
		TransportState:   c.state.transport,
		DiscState:        c.state.disc,
		TrayOpen:         c.state.trayOpen,
		Muted:            c.state.muted,
		CurrentGroup:     c.state.currentGroup,
		TotalGroups:      c.state.totalGroups,
		CurrentTrack:     c.state.currentTrack,
		TotalTracks:      c.state.totalTracks,
		ElapsedSeconds:   c.state.elapsedSeconds,
		RemainingSeconds: c.state.remainingSeconds,
		TotalSeconds:     c.state.totalSeconds,
		SocketOpen:       socketOpen,
		Connected:        socketOpen && !c.shuttingDown,
		HeartbeatRunning: c.heartbeatRunning,
		ShuttingDown:     c.shuttingDown,
		WakingUp:         c.wakingUp,
	}
}

// SetDataChangedCallback installs the single "data changed" sink,
// invoked with no arguments whenever any state value changes.
// Last write wins.
func (c *Controller) SetDataChangedCallback(fn func()) {
	c.mu.Lock()
	c.onDataChanged = fn
	c.mu.Unlock()
}

// RegisterSubscriber adds a listener for raw wire events, including
// the synthesized on/off events. An empty match receives everything;
// otherwise only events containing the match substring are delivered.
// The returned function unregisters the listener.
func (c *Controller) RegisterSubscriber(fn func(string), match string) func() {
	return c.subs.register(fn, match)
}

// RegisterSubscriberFor is RegisterSubscriber with automatic
// unregistration after d. The expiry timer is cancelled on Disconnect.
func (c *Controller) RegisterSubscriberFor(fn func(string), match string, d time.Duration) func() {
	unregister := c.subs.register(fn, match)
	c.timers.schedule(d, unregister)
	return unregister
}

// Connect attempts a connection with the default dial timeout. It is
// safe to call concurrently; overlapping callers collapse into one
// attempt. Returns true when the unit is reachable.
func (c *Controller) Connect() bool {
	return c.connect(c.opts.DialTimeout)
}

// Disconnect stops the heartbeat, cancels pending guard timers, and
// tears the connection down.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	stop := c.heartbeatStop
	c.heartbeatStop = nil
	c.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	c.timers.cancelAll()
	c.cleanup()
}

// connect dials the unit and brings the session up: synthesized "on"
// event, listen loop, and one full sequenced poll.
func (c *Controller) connect(timeout time.Duration) bool {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.ensureHeartbeat()

	if c.IsConnected() {
		return true
	}

	addr := net.JoinHostPort(c.host, strconv.Itoa(c.opts.Port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The socket just opened: the unit is officially network-on.
	c.subs.notify(syntheticPowerOn)

	go c.listen(conn)
	c.pollSequenced()
	return true
}

// listen reads from the socket until the peer closes or a read fails.
// Each chunk is checked against the pending command slot for ack/nack
// resolution independently of segment parsing.
func (c *Controller) listen(conn net.Conn) {
	defer c.cleanup()

	buf := make([]byte, readBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			raw := sanitizeASCII(buf[:n])
			c.resolvePending(raw)

			payload := protocol.StripContinuation(raw)
			if strings.Contains(payload, protocol.FrameDelimiter) {
				c.handleResponse(payload)
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Printf("TASCAM: listener ended: %v", err)
			}
			return
		}
	}
}

// cleanup closes the socket, forces the unit Off, wipes metadata, and
// fires the synthesized "off" event plus one data-changed callback.
// Concurrent triggers collapse into one effective run.
func (c *Controller) cleanup() {
	c.cleanupMu.Lock()
	defer c.cleanupMu.Unlock()

	c.mu.Lock()
	if c.conn == nil && c.state.transport == protocol.TransportOff {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	c.conn = nil
	c.state.transport = protocol.TransportOff
	c.state.clearMetadata()
	cb := c.onDataChanged
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}

	c.subs.notify(syntheticPowerOff)
	if cb != nil {
		cb()
	}
	c.logger.Printf("TASCAM: cleanup complete, driver idle")
}

// handleResponse applies a decoded burst to the device state and
// drives the two notification paths: the subscriber bus (any
// state-changing or unrecognized segment, never pure time ticks) and
// the data-changed callback (any value change, fired once per burst).
func (c *Controller) handleResponse(raw string) {
	var stateChanged, timeChanged bool
	var notifications []string

	c.mu.Lock()
	for _, seg := range protocol.SplitSegments(raw) {
		res := c.state.applySegment(seg)
		if res.timeChanged {
			timeChanged = true
		} else if res.changed {
			stateChanged = true
		}

		// Deliver discovery (unmonitored) segments and real state
		// transitions; suppress the once-per-second time flood.
		if (!res.monitored || res.changed) && !res.timeChanged {
			notifications = append(notifications, protocol.FrameDelimiter+seg)
		}
	}

	if timeChanged && c.state.elapsedSeconds > 0 && c.state.remainingSeconds > 0 {
		c.state.totalSeconds = c.state.elapsedSeconds + c.state.remainingSeconds
	}

	// Lifecycle guard: stale position data must not linger once the
	// unit leaves an active media state.
	if !c.state.transport.MediaActive() || c.state.transport == protocol.TransportOff {
		if c.state.elapsedSeconds != 0 || c.state.currentTrack != "0" {
			c.state.clearMetadata()
			stateChanged = true
		}
	}
	cb := c.onDataChanged
	c.mu.Unlock()

	for _, payload := range notifications {
		c.subs.notify(payload)
	}
	if (stateChanged || timeChanged) && cb != nil {
		cb()
	}
}

// sanitizeASCII decodes a chunk as ASCII, dropping invalid bytes.
func sanitizeASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c < 0x80 {
			b.WriteByte(c)
		}
	}
	return b.String()
}
