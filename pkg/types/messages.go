package types

import "encoding/json"

// Origin -> Relay
//
// Every state-changing message from the origin is a JSON envelope
// discriminated by "type". Asset bundles (images/translations/styles)
// arrive on the same socket as tagged binary frames instead; see
// internal/ingest for their framing.
//
// Upstream fields are loosely typed: booleans arrive as "true"/"false"
// strings and millisecond values as decimal strings. They are parsed into
// typed events at the ingest boundary and never travel further as strings.

const (
	MsgFullSnapshot      = "full-snapshot"
	MsgIncrementalUpdate = "incremental-update"
	MsgTimerEvent        = "timer-event"
	MsgDecisionEvent     = "decision-event"
)

type Envelope struct {
	Type     string `json:"type"`
	Protocol int    `json:"protocol"`
	FOP      string `json:"fop,omitempty"`

	// full-snapshot
	Payload json.RawMessage `json:"payload,omitempty"`

	// incremental-update: the latest presentation fields for one platform,
	// flat key -> loosely typed string value
	Fields map[string]string `json:"fields,omitempty"`

	// timer-event
	Event     string `json:"event,omitempty"` // "Set" | "Start" | "Stop"
	Remaining string `json:"remaining,omitempty"`
	Duration  string `json:"duration,omitempty"`

	// decision-event: votes are "true", "false", or absent (pending)
	D1      *string `json:"d1,omitempty"`
	D2      *string `json:"d2,omitempty"`
	D3      *string `json:"d3,omitempty"`
	Down    string  `json:"down,omitempty"`
	Visible string  `json:"visible,omitempty"`
	Single  string  `json:"single,omitempty"`
}

// Relay -> Origin
//
// Acks travel back on the origin socket. Status mirrors HTTP semantics:
// 200 applied, 428 precondition required (Missing lists the resource kinds
// the origin must resend first), 426 protocol version too old.
type Ack struct {
	Type    string   `json:"type"` // "ack" | "error"
	Status  int      `json:"status"`
	Missing []string `json:"missing,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Relay -> Consumer
//
// Push kinds on the display socket. fop_update is a change signal with no
// payload; consumers re-pull the view they care about.
const (
	OutStateUpdate  = "state_update"
	OutFOPUpdate    = "fop_update"
	OutTimer        = "timer"
	OutDecision     = "decision"
	OutTranslations = "translations"
	OutHubReady     = "hub_ready"
	OutWaiting      = "waiting"
)

type Outbound struct {
	Type    string          `json:"type"`
	FOP     string          `json:"fop,omitempty"`
	Version uint64          `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
