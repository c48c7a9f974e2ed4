package gateway

// StatusOut is the REST response type for /api/status.
type StatusOut struct {
	Symbol       string `json:"symbol"`
	Uptime       string `json:"uptime"`
	SessionOpen  bool   `json:"session_open"`
	SessionState string `json:"session_state"`
	Clients      int    `json:"clients"`
	LastBarTS    string `json:"last_bar_ts,omitempty"`
	SignalCount  int    `json:"signal_count"`
	DemoMode     bool   `json:"demo_mode"`
}

// SignalOut is the REST response type for /api/signals entries.
type SignalOut struct {
	ID        int64   `json:"id"`
	WindowID  int64   `json:"window_id"`
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Strength  float64 `json:"strength"`
	TS        string  `json:"ts"`
}
