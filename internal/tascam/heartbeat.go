package tascam

import (
	"time"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// ensureHeartbeat starts the supervision loop if one is not already
// running. Called from construction and from every connect attempt so
// a finished loop is always replaced.
func (c *Controller) ensureHeartbeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.heartbeatRunning {
		return
	}
	c.heartbeatRunning = true
	stop := make(chan struct{})
	c.heartbeatStop = stop
	go c.heartbeat(stop)
}

// heartbeat monitors the connection for the lifetime of the driver:
// it reconnects when offline, polls when online, and detects silent
// power-offs (IR remote, front panel) via consecutive poll failures.
func (c *Controller) heartbeat(stop chan struct{}) {
	c.logger.Printf("TASCAM: heartbeat started")
	defer func() {
		c.mu.Lock()
		c.heartbeatRunning = false
		c.mu.Unlock()
		c.logger.Printf("TASCAM: heartbeat stopped")
	}()

	failCount := 0
	for {
		// Respect the power-off cooldown and the wake sequence: no
		// reconnection or polling while either guard is active.
		if c.guardActive() {
			if !c.sleep(stop, c.opts.PollCadence) {
				return
			}
			continue
		}

		if !c.IsConnected() {
			if !c.connect(HeartbeatDialTimeout) {
				// A dead socket with a non-Off transport state means
				// the unit was powered off out from under us.
				c.mu.Lock()
				needsCleanup := c.state.transport != protocol.TransportOff && !c.wakingUp
				c.mu.Unlock()
				if needsCleanup {
					c.logger.Printf("TASCAM: connection lost, cleaning up")
					c.cleanup()
				}
				c.logger.Printf("TASCAM: device offline, polling again in %s", c.opts.OfflineBackoff)
				if !c.sleep(stop, c.opts.OfflineBackoff) {
					return
				}
				continue
			}
		} else {
			if !c.pollSequenced() {
				failCount++
				c.logger.Printf("TASCAM: poll failed (attempt %d/%d)", failCount, pollFailureThreshold)

				if failCount >= pollFailureThreshold {
					c.declareManualShutdown()
					failCount = 0
				} else {
					if !c.sleep(stop, time.Second) {
						return
					}
					continue
				}
			} else {
				failCount = 0
			}
		}

		if !c.sleep(stop, c.opts.PollCadence) {
			return
		}
	}
}

// declareManualShutdown handles the two-strike poll failure case: the
// unit stopped answering while the socket looked alive, so treat it as
// a front-panel or IR power-off and enter the cooldown window.
func (c *Controller) declareManualShutdown() {
	c.logger.Printf("TASCAM: manual shutdown detected")

	c.mu.Lock()
	c.shuttingDown = true
	c.mu.Unlock()

	c.cleanup()
	c.scheduleCooldownReset()
}

func (c *Controller) guardActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shuttingDown || c.wakingUp
}

// sleep waits d or until the stop channel closes; false means stop.
func (c *Controller) sleep(stop chan struct{}, d time.Duration) bool {
	select {
	case <-stop:
		return false
	case <-time.After(d):
		return true
	}
}
