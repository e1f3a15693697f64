package protocol

// TransportState is the unit's transport mode as reported by SST segments.
type TransportState string

const (
	TransportPlay        TransportState = "Playing"
	TransportPause       TransportState = "Paused"
	TransportStop        TransportState = "Stopped"
	TransportFastForward TransportState = "Fast Forward"
	TransportFastReverse TransportState = "Fast Reverse"
	TransportSlowForward TransportState = "Slow Forward"
	TransportSlowReverse TransportState = "Slow Reverse"
	TransportSetup       TransportState = "Setup Mode"
	TransportHome        TransportState = "Home Menu"
	TransportMediaCenter TransportState = "Media Centre"
	TransportRootMenu    TransportState = "Root Menu"
	TransportPoweringOn  TransportState = "Powering On"
	TransportOff         TransportState = "Off"
	TransportUnknown     TransportState = "Unknown"
)

// Transport code table from the BD-MP4K protocol reference (section 5.3).
var transportCodes = map[string]TransportState{
	"DVFF": TransportFastForward,
	"DVFR": TransportFastReverse,
	"DVSF": TransportSlowForward,
	"DVSR": TransportSlowReverse,
	"DVSU": TransportSetup,
	"DVHM": TransportHome,
	"DVMC": TransportMediaCenter,
	"DVTR": TransportRootMenu,
	"DVPL": TransportPoweringOn,
	"PL":   TransportPlay,
	"PP":   TransportPause,
	"ST":   TransportStop,
}

// TransportCode resolves an SST payload against the code table.
// Unmatched codes return ok=false and must leave state untouched.
func TransportCode(code string) (TransportState, bool) {
	state, ok := transportCodes[code]
	return state, ok
}

// MediaActive reports whether the state is one in which the unit is
// actively traversing media (the states that carry position data).
func (s TransportState) MediaActive() bool {
	switch s {
	case TransportPlay, TransportPause, TransportFastForward,
		TransportFastReverse, TransportSlowForward, TransportSlowReverse:
		return true
	}
	return false
}

// DiscState is the media/tray status reported by MST segments.
type DiscState string

const (
	DiscNoMedia    DiscState = "No Media"
	DiscLoaded     DiscState = "Disc"
	DiscTrayOpen   DiscState = "Tray Open"
	DiscTrayClosed DiscState = "Tray Closed"
	DiscTrayError  DiscState = "Tray Error"
	DiscUnknown    DiscState = "Unknown"
)

// DiscTrayOpenCode is the wire value reporting a physically open tray.
const DiscTrayOpenCode = "TO"

var discCodes = map[string]DiscState{
	"NC": DiscNoMedia,
	"CI": DiscLoaded,
	"TO": DiscTrayOpen,
	"TC": DiscTrayClosed,
	"TE": DiscTrayError,
	"UF": DiscUnknown,
}

// DiscCode resolves the two-character MST code. Unmatched codes return
// ok=false; callers map those to DiscUnknown.
func DiscCode(code string) (DiscState, bool) {
	state, ok := discCodes[code]
	return state, ok
}
