package tascam

import "time"

// toggleQueryDelay gives the unit time to answer a status query before
// the inverted command is chosen.
const toggleQueryDelay = 100 * time.Millisecond

// Transport control.

// Play commences playback or resumes from pause.
func (c *Controller) Play() bool { return c.SendCommand("PLY") }

// Stop halts playback and resets the transport position.
func (c *Controller) Stop() bool { return c.SendCommand("STP") }

// Pause freezes playback at the current timestamp.
func (c *Controller) Pause() bool { return c.SendCommand("PAS") }

// Next skips to the next track or chapter.
func (c *Controller) Next() bool { return c.SendCommand("SKPNX") }

// Previous returns to the start of the current track or the previous chapter.
func (c *Controller) Previous() bool { return c.SendCommand("SKPPV") }

// FastForward starts high-speed forward scanning.
func (c *Controller) FastForward() bool { return c.SendCommand("SCNFf") }

// Rewind starts high-speed reverse scanning.
func (c *Controller) Rewind() bool { return c.SendCommand("SCNRf") }

// On-screen navigation.

func (c *Controller) Enter() bool { return c.SendCommand("ENT") }
func (c *Controller) Back() bool  { return c.SendCommand("RET") }
func (c *Controller) Left() bool  { return c.SendCommand("OSD1") }
func (c *Controller) Right() bool { return c.SendCommand("OSD2") }
func (c *Controller) Up() bool    { return c.SendCommand("OSD3") }
func (c *Controller) Down() bool  { return c.SendCommand("OSD4") }

// Menus.

// Home returns to the system home screen.
func (c *Controller) Home() bool { return c.SendCommand("HOM") }

// Setup opens the system configuration menu.
func (c *Controller) Setup() bool { return c.SendCommand("SMN") }

// TopMenu opens the disc's root menu.
func (c *Controller) TopMenu() bool { return c.SendCommand("TMN") }

// PopupMenu invokes the disc's pop-up menu during playback.
func (c *Controller) PopupMenu() bool { return c.SendCommand("PMN") }

// Option displays context-sensitive playback options.
func (c *Controller) Option() bool { return c.SendCommand("OMN") }

// Info toggles the on-screen metadata display.
func (c *Controller) Info() bool { return c.SendCommand("DSP") }

// Audio and utility.

// AudioDialog cycles through available audio tracks.
func (c *Controller) AudioDialog() bool { return c.SendCommand("ADG+") }

// Subtitle cycles through available subtitle tracks.
func (c *Controller) Subtitle() bool { return c.SendCommand("SBT1") }

// MuteOn engages hardware audio muting.
func (c *Controller) MuteOn() bool { return c.SendCommand("MUT00") }

// MuteOff disengages hardware audio muting.
func (c *Controller) MuteOff() bool { return c.SendCommand("MUT01") }

// ToggleMute queries the current mute state and sends the inverse.
func (c *Controller) ToggleMute() bool {
	if !c.IsConnected() {
		return false
	}
	c.SendCommand("?MUT")
	time.Sleep(toggleQueryDelay)

	c.mu.Lock()
	muted := c.state.muted
	c.mu.Unlock()
	if muted {
		return c.SendCommand("MUT01")
	}
	return c.SendCommand("MUT00")
}

// ToggleTray queries the tray state and sends the inverse open/close.
func (c *Controller) ToggleTray() bool {
	if !c.IsConnected() {
		return false
	}
	c.SendCommand("?MST")
	time.Sleep(toggleQueryDelay)

	c.mu.Lock()
	trayOpen := c.state.trayOpen
	c.mu.Unlock()
	if trayOpen {
		return c.SendCommand("OPCCL")
	}
	return c.SendCommand("OPCOP")
}
