package tascam

import (
	"time"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
	"github.com/strefethen/tascam-hub-go/internal/wol"
)

// PowerOn wakes the unit. When already connected it degrades to a
// plain power-on command. Otherwise it broadcasts a wake-on-LAN magic
// packet and polls for the unit to come up, sending the power-on
// command on the first successful connection. The waking-up guard
// keeps the heartbeat muzzled for the duration.
func (c *Controller) PowerOn() bool {
	if c.IsConnected() {
		return c.SendCommand(powerOnOverride)
	}

	// Reflect the attempt in the UI before any network activity.
	c.mu.Lock()
	c.wakingUp = true
	c.shuttingDown = false
	c.state.transport = protocol.TransportPoweringOn
	cb := c.onDataChanged
	c.mu.Unlock()
	if cb != nil {
		cb()
	}

	if c.mac == "" {
		c.mu.Lock()
		c.wakingUp = false
		c.state.transport = protocol.TransportOff
		c.mu.Unlock()
		c.logger.Printf("TASCAM: power on aborted, no hardware address known")
		return false
	}

	packet, err := wol.MagicPacket(c.mac)
	if err != nil {
		c.logger.Printf("TASCAM: %v", err)
		return c.abortWake()
	}
	if err := wol.Broadcast(packet, c.host); err != nil {
		c.logger.Printf("TASCAM: wake broadcast failed: %v", err)
		return c.abortWake()
	}

	for attempt := 0; attempt < c.opts.WakeAttempts; attempt++ {
		time.Sleep(c.opts.WakeInterval)
		if !c.connect(HeartbeatDialTimeout) {
			continue
		}

		result := c.SendCommand(powerOnOverride)

		c.mu.Lock()
		c.wakingUp = false
		cb = c.onDataChanged
		c.mu.Unlock()
		if cb != nil {
			cb()
		}
		return result
	}

	return c.abortWake()
}

// abortWake reverts a failed wake sequence to Off and reports failure.
func (c *Controller) abortWake() bool {
	c.mu.Lock()
	c.wakingUp = false
	c.state.transport = protocol.TransportOff
	cb := c.onDataChanged
	c.mu.Unlock()
	if cb != nil {
		cb()
	}
	return false
}

// PowerOff puts the unit into standby. The cooldown and cleanup
// choreography runs inside SendCommand's post-success hook.
func (c *Controller) PowerOff() bool {
	if !c.IsConnected() {
		return false
	}
	return c.SendCommand(powerOffDirective)
}
