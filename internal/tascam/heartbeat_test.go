package tascam

import (
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// fakeDevice is a loopback stand-in for the unit: it acks every frame
// while responsive, and keeps the socket open but stops answering once
// silenced, like a unit powered off from the front panel.
type fakeDevice struct {
	listener net.Listener
	silent   atomic.Bool

	mu       sync.Mutex
	received []string
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &fakeDevice{listener: l}
	go d.serve()
	t.Cleanup(func() { l.Close() })
	return d
}

func (d *fakeDevice) port() int {
	return d.listener.Addr().(*net.TCPAddr).Port
}

func (d *fakeDevice) serve() {
	for {
		conn, err := d.listener.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *fakeDevice) handle(conn net.Conn) {
	defer conn.Close()
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			return
		}
		d.mu.Lock()
		d.received = append(d.received, string(buf[:n]))
		d.mu.Unlock()
		if !d.silent.Load() {
			conn.Write([]byte("ack"))
		}
	}
}

func (d *fakeDevice) sawCommand(body string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, frame := range d.received {
		if strings.Contains(frame, body) {
			return true
		}
	}
	return false
}

func TestHeartbeat_TwoSilentPollsDeclareManualShutdown(t *testing.T) {
	device := newFakeDevice(t)

	c := New("127.0.0.1", "", Options{
		Port:           device.port(),
		Logger:         log.New(io.Discard, "", 0),
		AckTimeout:     50 * time.Millisecond,
		QueryDelay:     time.Millisecond,
		PollCadence:    50 * time.Millisecond,
		OfflineBackoff: 50 * time.Millisecond,
		CooldownWindow: time.Minute,
	})
	t.Cleanup(c.Disconnect)

	// The loop connects on its own and the connect-time poll is acked.
	require.Eventually(t, func() bool {
		return c.Snapshot().SocketOpen
	}, 3*time.Second, 10*time.Millisecond)

	// The unit stops answering while the socket stays up. Two failed
	// polls later the driver declares a manual shutdown: cooldown
	// asserted, state forced off, socket torn down.
	device.silent.Store(true)

	require.Eventually(t, func() bool {
		snap := c.Snapshot()
		return snap.ShuttingDown &&
			snap.TransportState == protocol.TransportOff &&
			!snap.SocketOpen
	}, 5*time.Second, 25*time.Millisecond)
}

func TestHeartbeat_ReconnectFailureCleansUpStaleState(t *testing.T) {
	// Reserve a port with nothing listening behind it.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	c := New("127.0.0.1", "", Options{
		Port:             port,
		DisableHeartbeat: true,
		Logger:           log.New(io.Discard, "", 0),
		AckTimeout:       50 * time.Millisecond,
		PollCadence:      20 * time.Millisecond,
		OfflineBackoff:   20 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	got := make(chan string, 4)
	c.RegisterSubscriber(func(msg string) { got <- msg }, "SSTOFF")

	// The socket dropped without cleanup ever running: transport still
	// says Play but there is nothing to reconnect to. The loop must
	// notice and reset the state itself.
	c.mu.Lock()
	c.state.transport = protocol.TransportPlay
	c.mu.Unlock()

	c.ensureHeartbeat()

	select {
	case msg := <-got:
		assert.Equal(t, "!7SSTOFF", msg)
	case <-time.After(3 * time.Second):
		t.Fatal("expected synthesized off event after reconnect failure")
	}
	assert.Equal(t, protocol.TransportOff, c.Snapshot().TransportState)
}

func TestPowerOn_WakeSequenceSendsPowerCommandOnFirstConnect(t *testing.T) {
	device := newFakeDevice(t)

	c := New("127.0.0.1", "00:11:22:33:44:55", Options{
		Port:             device.port(),
		DisableHeartbeat: true,
		Logger:           log.New(io.Discard, "", 0),
		AckTimeout:       200 * time.Millisecond,
		QueryDelay:       time.Millisecond,
		WakeAttempts:     3,
		WakeInterval:     20 * time.Millisecond,
	})
	t.Cleanup(c.Disconnect)

	callbacks := make(chan struct{}, 8)
	c.SetDataChangedCallback(func() { callbacks <- struct{}{} })

	require.True(t, c.PowerOn())

	snap := c.Snapshot()
	assert.False(t, snap.WakingUp)
	assert.True(t, snap.SocketOpen)
	assert.True(t, device.sawCommand("PWR01"))

	// One callback when the wake starts, another once the unit is up.
	assert.GreaterOrEqual(t, len(callbacks), 2)
}
