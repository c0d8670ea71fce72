package model

const ServerVersion = "0.1.0"

// ConnectedPayload is the data sent to the client upon successful admission.
type ConnectedPayload struct {
	Ok            bool   `json:"ok"`
	ConnectionID  string `json:"connection_id"`
	ServerVersion string `json:"server_version"`
}

// DisconnectedPayload is the notification written best-effort before the
// server closes the stream on its own initiative.
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// PingPayload is the body of the periodic keepalive message.
type PingPayload struct {
	At int64 `json:"at"`
}
