// Package protocol implements the BD-MP4K "!7" line protocol: command
// framing, inbound burst splitting, and the code tables that map wire
// values onto transport, disc, and playback fields. Everything here is
// pure; socket handling lives in the tascam package.
package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// FrameDelimiter prefixes every command and every inbound state segment.
const FrameDelimiter = "!7"

// DefaultPort is the TCP control port the unit listens on.
const DefaultPort = 9030

// EncodeCommand builds the wire frame for a command body. The body is
// trimmed, prefixed with the frame delimiter when missing, and
// terminated with a carriage return.
func EncodeCommand(body string) []byte {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, FrameDelimiter) {
		body = FrameDelimiter + body
	}
	return []byte(body + "\r")
}

// IsAck reports whether a raw inbound chunk acknowledges the pending
// command. The test is a case-insensitive substring match on the whole
// chunk; a chunk carrying "nack" never counts as an acknowledgment.
func IsAck(raw string) bool {
	low := strings.ToLower(raw)
	return strings.Contains(low, "ack") && !strings.Contains(low, "nack")
}

// IsNack reports whether a raw inbound chunk rejects the pending command.
func IsNack(raw string) bool {
	low := strings.ToLower(raw)
	return strings.Contains(low, "nack") || strings.Contains(low, "error")
}

// StripContinuation removes the "ack+" response-continuation marker so
// segment splitting only sees clean frames.
func StripContinuation(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), "ack+", "")
}

// SplitSegments splits an inbound burst on the frame delimiter,
// dropping empty segments, bare ack/nack/error tokens, and anything
// shorter than two characters.
func SplitSegments(raw string) []string {
	var segments []string
	for _, seg := range strings.Split(raw, FrameDelimiter) {
		if len(seg) < 2 {
			continue
		}
		switch strings.ToLower(seg) {
		case "ack", "nack", "error":
			continue
		}
		segments = append(segments, seg)
	}
	return segments
}

// IsTransitional reports whether a segment carries the unit's
// "value momentarily unknown" marker. Transitional numeric fields
// resolve to "0" and transitional time fields resolve to 0 seconds.
func IsTransitional(seg string) bool {
	return strings.Contains(seg, "UNKN")
}

// Field identifies which monitored state field a segment reports.
type Field int

const (
	FieldUnknown Field = iota
	FieldTransport
	FieldDisc
	FieldMute
	FieldCurrentGroup
	FieldTotalGroups
	FieldCurrentTrack
	FieldTotalTracks
	FieldElapsed
	FieldRemaining
)

// ClassifySegment dispatches a segment to its field by fixed prefix.
// Where prefixes overlap the longest match wins (TGNX before the GN
// family, TNM before TN, TTN before TT).
func ClassifySegment(seg string) Field {
	switch {
	case strings.HasPrefix(seg, "SST"):
		return FieldTransport
	case strings.HasPrefix(seg, "MST"):
		return FieldDisc
	case strings.HasPrefix(seg, "MUT"):
		return FieldMute
	case strings.HasPrefix(seg, "TGNX"):
		return FieldTotalGroups
	case strings.HasPrefix(seg, "GNMX"), strings.HasPrefix(seg, "GNM"), strings.HasPrefix(seg, "GN"):
		return FieldCurrentGroup
	case strings.HasPrefix(seg, "TNM"), strings.HasPrefix(seg, "TN"):
		return FieldCurrentTrack
	case strings.HasPrefix(seg, "TTN"), strings.HasPrefix(seg, "TT"):
		return FieldTotalTracks
	case strings.HasPrefix(seg, "SET"):
		return FieldElapsed
	case strings.HasPrefix(seg, "SRT"):
		return FieldRemaining
	}
	return FieldUnknown
}

// NormalizeNumber extracts the decimal digits of a numeric segment and
// strips leading zeros. An empty result maps to "0".
func NormalizeNumber(seg string) string {
	var digits strings.Builder
	for _, r := range seg {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	v := strings.TrimLeft(digits.String(), "0")
	if v == "" {
		return "0"
	}
	return v
}

// timePattern anchors the trailing seven digits of a time payload:
// three-digit hours, two-digit minutes, two-digit seconds.
var timePattern = regexp.MustCompile(`(\d{3})(\d{2})(\d{2})$`)

// TimeToSeconds converts an HHHMMSS time payload to total seconds.
// Payloads without a trailing seven-digit run yield 0.
func TimeToSeconds(payload string) int {
	m := timePattern.FindStringSubmatch(payload)
	if m == nil {
		return 0
	}
	hhh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	ss, _ := strconv.Atoi(m[3])
	return hhh*3600 + mm*60 + ss
}
