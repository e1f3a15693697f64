package tascam

import (
	"fmt"
	"strings"

	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// deviceState is everything known about the unit. It is owned by the
// Controller and only ever mutated under the controller mutex; callers
// read copies via Snapshot.
type deviceState struct {
	transport protocol.TransportState
	disc      protocol.DiscState
	trayOpen  bool
	muted     bool

	currentGroup string
	totalGroups  string
	currentTrack string
	totalTracks  string

	elapsedSeconds   int
	remainingSeconds int
	totalSeconds     int
}

func newDeviceState() deviceState {
	return deviceState{
		transport:    protocol.TransportOff,
		disc:         protocol.DiscNoMedia,
		currentGroup: "0",
		totalGroups:  "0",
		currentTrack: "0",
		totalTracks:  "0",
	}
}

// clearMetadata resets position, time, and disc data to defaults.
// The transport state is handled by the caller.
func (s *deviceState) clearMetadata() {
	s.currentGroup, s.totalGroups = "0", "0"
	s.currentTrack, s.totalTracks = "0", "0"
	s.elapsedSeconds, s.remainingSeconds, s.totalSeconds = 0, 0, 0
	s.disc = protocol.DiscNoMedia
	s.trayOpen = false
}

// segmentResult reports what applying one segment did. Time fields set
// timeChanged instead of changed so bursts can distinguish a real state
// transition from the once-per-second position tick.
type segmentResult struct {
	monitored   bool
	changed     bool
	timeChanged bool
}

// applySegment applies one decoded segment with per-field
// compare-and-set semantics.
func (s *deviceState) applySegment(seg string) segmentResult {
	var res segmentResult
	transitional := protocol.IsTransitional(seg)

	switch protocol.ClassifySegment(seg) {
	case protocol.FieldTransport:
		res.monitored = true
		// The unit pads some reports with whitespace ("SST PL").
		code := strings.TrimSpace(seg[3:])
		if state, ok := protocol.TransportCode(code); ok && s.transport != state {
			s.transport = state
			res.changed = true
		}

	case protocol.FieldDisc:
		res.monitored = true
		rest := strings.TrimSpace(seg[3:])
		if len(rest) < 2 {
			break
		}
		code := rest[:2]
		if disc, ok := protocol.DiscCode(code); ok {
			if s.disc != disc {
				s.disc = disc
				res.changed = true
			}
		} else {
			s.disc = protocol.DiscUnknown
		}
		trayOpen := code == protocol.DiscTrayOpenCode
		if s.trayOpen != trayOpen {
			s.trayOpen = trayOpen
			res.changed = true
		}

	case protocol.FieldMute:
		res.monitored = true
		muted := containsMuteCode(seg)
		if s.muted != muted {
			s.muted = muted
			res.changed = true
		}

	case protocol.FieldCurrentGroup:
		res.monitored = true
		res.changed = setNumeric(&s.currentGroup, seg, transitional)
	case protocol.FieldTotalGroups:
		res.monitored = true
		res.changed = setNumeric(&s.totalGroups, seg, transitional)
	case protocol.FieldCurrentTrack:
		res.monitored = true
		res.changed = setNumeric(&s.currentTrack, seg, transitional)
	case protocol.FieldTotalTracks:
		res.monitored = true
		res.changed = setNumeric(&s.totalTracks, seg, transitional)

	case protocol.FieldElapsed:
		res.monitored = true
		res.timeChanged = setSeconds(&s.elapsedSeconds, seg, transitional)
	case protocol.FieldRemaining:
		res.monitored = true
		res.timeChanged = setSeconds(&s.remainingSeconds, seg, transitional)
	}

	return res
}

func setNumeric(field *string, seg string, transitional bool) bool {
	value := "0"
	if !transitional {
		value = protocol.NormalizeNumber(seg)
	}
	if *field == value {
		return false
	}
	*field = value
	return true
}

func setSeconds(field *int, seg string, transitional bool) bool {
	value := 0
	if !transitional {
		value = protocol.TimeToSeconds(seg[3:])
	}
	if *field == value {
		return false
	}
	*field = value
	return true
}

// The unit reports mute as a two-value code: 00 muted, 01 unmuted.
func containsMuteCode(seg string) bool {
	return strings.Contains(seg, "00")
}

// Snapshot is a point-in-time copy of the device state plus the
// driver's connectivity flags.
type Snapshot struct {
	TransportState   protocol.TransportState `json:"transport_state"`
	DiscState        protocol.DiscState      `json:"disc_state"`
	TrayOpen         bool                    `json:"tray_open"`
	Muted            bool                    `json:"muted"`
	CurrentGroup     string                  `json:"current_group"`
	TotalGroups      string                  `json:"total_groups"`
	CurrentTrack     string                  `json:"current_track"`
	TotalTracks      string                  `json:"total_tracks"`
	ElapsedSeconds   int                     `json:"elapsed_seconds"`
	RemainingSeconds int                     `json:"remaining_seconds"`
	TotalSeconds     int                     `json:"total_seconds"`

	SocketOpen       bool `json:"socket_open"`
	Connected        bool `json:"connected"`
	HeartbeatRunning bool `json:"heartbeat_running"`
	ShuttingDown     bool `json:"shutting_down"`
	WakingUp         bool `json:"waking_up"`
}

// FormatSeconds renders a second count as HH:MM:SS for display.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
