// Package packetlog writes optional NDJSON telemetry: one JSON object per
// plugin-message frame sent or received, plus lifecycle events.
package packetlog
