package audit

// EventType represents the type of player event.
type EventType string

const (
	EventConnectionOpened EventType = "CONNECTION_OPENED"
	EventConnectionLost   EventType = "CONNECTION_LOST"
	EventCommandSent      EventType = "COMMAND_SENT"
	EventCommandFailed    EventType = "COMMAND_FAILED"
	EventPowerOn          EventType = "POWER_ON"
	EventPowerOff         EventType = "POWER_OFF"
	EventManualShutdown   EventType = "MANUAL_SHUTDOWN"
	EventRawMessage       EventType = "RAW_MESSAGE"
	EventSystemStartup    EventType = "SYSTEM_STARTUP"
	EventSystemError      EventType = "SYSTEM_ERROR"
)
