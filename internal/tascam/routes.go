package tascam

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/strefethen/tascam-hub-go/internal/api"
	"github.com/strefethen/tascam-hub-go/internal/apperrors"
	"github.com/strefethen/tascam-hub-go/internal/protocol"
)

// CommandRecorder receives the outcome of commands issued over HTTP.
// Implementations must not block.
type CommandRecorder interface {
	RecordCommand(requestID, command string, success bool)
}

// commandNames maps the remote-control vocabulary onto driver methods.
var commandNames = []string{
	"play", "stop", "pause", "next", "previous", "fast_forward", "rewind",
	"enter", "back", "left", "right", "up", "down",
	"home", "setup", "top_menu", "popup_menu", "option", "info",
	"audio_dialog", "subtitle", "mute_on", "mute_off", "toggle_mute", "toggle_tray",
}

func (c *Controller) commandByName(name string) (func() bool, bool) {
	switch name {
	case "play":
		return c.Play, true
	case "stop":
		return c.Stop, true
	case "pause":
		return c.Pause, true
	case "next":
		return c.Next, true
	case "previous":
		return c.Previous, true
	case "fast_forward":
		return c.FastForward, true
	case "rewind":
		return c.Rewind, true
	case "enter":
		return c.Enter, true
	case "back":
		return c.Back, true
	case "left":
		return c.Left, true
	case "right":
		return c.Right, true
	case "up":
		return c.Up, true
	case "down":
		return c.Down, true
	case "home":
		return c.Home, true
	case "setup":
		return c.Setup, true
	case "top_menu":
		return c.TopMenu, true
	case "popup_menu":
		return c.PopupMenu, true
	case "option":
		return c.Option, true
	case "info":
		return c.Info, true
	case "audio_dialog":
		return c.AudioDialog, true
	case "subtitle":
		return c.Subtitle, true
	case "mute_on":
		return c.MuteOn, true
	case "mute_off":
		return c.MuteOff, true
	case "toggle_mute":
		return c.ToggleMute, true
	case "toggle_tray":
		return c.ToggleTray, true
	}
	return nil, false
}

// stateResponse is the JSON rendering of a snapshot, with display
// strings for the time fields.
type stateResponse struct {
	Snapshot
	Elapsed   string `json:"elapsed"`
	Remaining string `json:"remaining"`
	Total     string `json:"total"`
}

// RegisterRoutes wires the player control routes to the router.
func RegisterRoutes(router chi.Router, c *Controller, recorder CommandRecorder) {
	router.Method(http.MethodGet, "/api/player/state", api.Handler(getState(c)))
	router.Method(http.MethodGet, "/api/player/commands", api.Handler(listCommands()))
	router.Method(http.MethodPost, "/api/player/command/{name}", api.Handler(sendNamedCommand(c, recorder)))
	router.Method(http.MethodPost, "/api/player/raw", api.Handler(sendRawCommand(c, recorder)))
	router.Method(http.MethodPost, "/api/player/power/on", api.Handler(powerOn(c, recorder)))
	router.Method(http.MethodPost, "/api/player/power/off", api.Handler(powerOff(c, recorder)))
}

// getState returns the current device snapshot.
// GET /api/player/state
func getState(c *Controller) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		snap := c.Snapshot()
		resp := stateResponse{
			Snapshot:  snap,
			Elapsed:   FormatSeconds(snap.ElapsedSeconds),
			Remaining: FormatSeconds(snap.RemainingSeconds),
			Total:     FormatSeconds(snap.TotalSeconds),
		}
		return api.SingleResponse(w, r, http.StatusOK, "state", resp)
	}
}

// listCommands returns the named command vocabulary.
// GET /api/player/commands
func listCommands() func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		return api.ListResponse(w, r, http.StatusOK, "commands", commandNames, nil)
	}
}

// sendNamedCommand issues a command from the remote vocabulary.
// POST /api/player/command/{name}
func sendNamedCommand(c *Controller, recorder CommandRecorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		name := strings.ToLower(chi.URLParam(r, "name"))

		cmd, ok := c.commandByName(name)
		if !ok {
			return apperrors.NewAppError(apperrors.ErrorCodeCommandUnknown, "Unknown command", 404, map[string]any{
				"name": name,
			})
		}

		if !c.IsConnected() {
			return apperrors.NewDeviceOfflineError("Player is not connected")
		}

		accepted := cmd()
		record(recorder, r, name, accepted)
		if !accepted {
			return apperrors.NewCommandRejectedError("Player did not accept command", map[string]any{
				"name": name,
			})
		}

		return api.ActionResponse(w, r, http.StatusOK, map[string]any{
			"command":  name,
			"accepted": true,
		})
	}
}

// rawCommandRequest is the body for POST /api/player/raw.
type rawCommandRequest struct {
	Command string `json:"command"`
}

// sendRawCommand passes a protocol command body straight through.
// POST /api/player/raw
func sendRawCommand(c *Controller, recorder CommandRecorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		var req rawCommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return apperrors.NewValidationError("invalid request body", nil)
		}

		body := strings.TrimSpace(req.Command)
		if body == "" {
			return apperrors.NewValidationError("command is required", nil)
		}
		body = strings.TrimPrefix(body, protocol.FrameDelimiter)

		if !c.IsConnected() {
			return apperrors.NewDeviceOfflineError("Player is not connected")
		}

		accepted := c.SendCommand(body)
		record(recorder, r, body, accepted)
		if !accepted {
			return apperrors.NewCommandRejectedError("Player did not accept command", map[string]any{
				"command": body,
			})
		}

		return api.ActionResponse(w, r, http.StatusOK, map[string]any{
			"command":  body,
			"accepted": true,
		})
	}
}

// powerOn runs the wake sequence.
// POST /api/player/power/on
func powerOn(c *Controller, recorder CommandRecorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		ok := c.PowerOn()
		record(recorder, r, "power_on", ok)
		if !ok {
			return apperrors.NewAppError(apperrors.ErrorCodePowerSequence, "Power on failed", 502, nil)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{
			"power":    "on",
			"accepted": true,
		})
	}
}

// powerOff puts the unit into standby.
// POST /api/player/power/off
func powerOff(c *Controller, recorder CommandRecorder) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		if !c.IsConnected() {
			return apperrors.NewDeviceOfflineError("Player is not connected")
		}

		ok := c.PowerOff()
		record(recorder, r, "power_off", ok)
		if !ok {
			return apperrors.NewCommandRejectedError("Player did not accept power off", nil)
		}
		return api.ActionResponse(w, r, http.StatusOK, map[string]any{
			"power":    "off",
			"accepted": true,
		})
	}
}

func record(recorder CommandRecorder, r *http.Request, command string, success bool) {
	if recorder == nil {
		return
	}
	recorder.RecordCommand(api.GetRequestID(r), command, success)
}
