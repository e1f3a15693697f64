package tascam

import (
	"strings"
	"time"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// powerOnOverride is the only command accepted during a shutdown
// cooldown window.
const powerOnOverride = "PWR01"

// powerOffDirective triggers the clean-shutdown choreography after a
// successful acknowledgment.
const powerOffDirective = "PWR00"

// SendCommand transmits a protocol command and waits for the unit's
// acknowledgment. It returns false without transmitting when there is
// no live socket, or when a shutdown cooldown is active and the
// command is not the power-on override. Commands are serialized:
// exactly one may be in flight at a time.
func (c *Controller) SendCommand(body string) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return false
	}
	if c.shuttingDown && !strings.Contains(body, powerOnOverride) {
		c.mu.Unlock()
		c.logger.Printf("TASCAM: command %s blocked, unit shutting down", body)
		return false
	}
	pending := make(chan bool, 1)
	c.pending = pending
	c.mu.Unlock()

	frame := protocol.EncodeCommand(body)
	conn.SetWriteDeadline(time.Now().Add(c.opts.AckTimeout))
	if _, err := conn.Write(frame); err != nil {
		c.clearPending()
		c.logger.Printf("TASCAM: write failed for %s: %v", body, err)
		return false
	}
	c.logger.Printf("TASCAM: sent %s", strings.TrimSuffix(string(frame), "\r"))

	var success bool
	select {
	case success = <-pending:
	case <-time.After(c.opts.AckTimeout):
		c.clearPending()
		c.logger.Printf("TASCAM: timeout, no response for %s", body)
		return false
	}
	c.clearPending()

	if !success {
		c.logger.Printf("TASCAM: command %s rejected by unit", body)
		return false
	}

	if strings.Contains(body, powerOffDirective) {
		c.beginShutdownCooldown()
	}
	return true
}

// resolvePending settles the pending command slot from a raw inbound
// chunk. A chunk with an ack token (and no nack) resolves success;
// nack or error resolves failure. Chunks with neither are ignored.
func (c *Controller) resolvePending(raw string) {
	c.mu.Lock()
	pending := c.pending
	c.mu.Unlock()
	if pending == nil {
		return
	}

	switch {
	case protocol.IsAck(raw):
		select {
		case pending <- true:
		default:
		}
	case protocol.IsNack(raw):
		select {
		case pending <- false:
		default:
		}
	}
}

func (c *Controller) clearPending() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

// beginShutdownCooldown runs the post-success hook for a confirmed
// power-off: assert the cooldown flag, force Off, notify, give the
// unit a moment to settle, tear down, and schedule the cooldown's
// automatic expiry.
func (c *Controller) beginShutdownCooldown() {
	c.mu.Lock()
	c.shuttingDown = true
	c.state.transport = protocol.TransportOff
	cb := c.onDataChanged
	c.mu.Unlock()

	if cb != nil {
		cb()
	}

	time.Sleep(shutdownSettleDelay)
	c.cleanup()
	c.scheduleCooldownReset()
}

// scheduleCooldownReset clears the shutdown guard after the cooldown
// window, giving the unit time to power down gracefully.
func (c *Controller) scheduleCooldownReset() {
	c.timers.schedule(c.opts.CooldownWindow, func() {
		c.mu.Lock()
		c.shuttingDown = false
		c.mu.Unlock()
		c.logger.Printf("TASCAM: shutdown cooldown expired")
	})
}

// pollSequenced issues the fixed liveness/refresh query set. Only the
// first query is authoritative: if ?SST is not acked the unit is
// presumed off and the poll fails. Time and position queries are
// skipped while the unit is idle to avoid needless traffic, and a
// small delay between queries keeps the device's receive buffer happy.
func (c *Controller) pollSequenced() bool {
	if !c.SendCommand("?SST") {
		return false
	}

	queries := []string{"?MUT", "?MST"}

	c.mu.Lock()
	mediaActive := c.state.transport.MediaActive()
	c.mu.Unlock()
	if mediaActive {
		queries = append(queries, "?SET", "?SRT", "?SGN", "?STC", "?STG", "?STT")
	}

	for _, q := range queries {
		c.SendCommand(q)
		time.Sleep(c.opts.QueryDelay)
	}
	return true
}
