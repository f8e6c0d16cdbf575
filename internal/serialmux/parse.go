package serialmux

import "strings"

const (
	EventTypeIMU     = "imu"
	EventTypeScan    = "scan"
	EventTypeLog     = "log"
	EventTypeUnknown = "unknown"
)

// ClassifyPayload returns the kind of bridge line without decoding it.
// Sensor frames are JSON objects; anything starting with '#' is firmware
// chatter.
func ClassifyPayload(payload string) string {
	payload = strings.TrimSpace(payload)
	switch {
	case strings.HasPrefix(payload, "#"):
		return EventTypeLog
	case !strings.HasPrefix(payload, "{"):
		return EventTypeUnknown
	case strings.Contains(payload, `"scan"`):
		return EventTypeScan
	case strings.Contains(payload, `"accel"`) || strings.Contains(payload, `"gyro"`):
		return EventTypeIMU
	default:
		return EventTypeUnknown
	}
}
