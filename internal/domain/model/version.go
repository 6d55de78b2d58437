package model

// ServerVersion is reported in the connect handshake and the health summary.
const ServerVersion = "1.0.0"

// ConnectedPayload is sent to a client right after a successful subscription.
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	ConnectionID  string `json:"connection_id"`
	ServerVersion string `json:"server_version"`
}

// ErrorPayload reports a per-client failure. It never reaches other clients.
type ErrorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
