package model

// WebSocket message types
const (
	WSMessageTypeProgress = "progress"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypeHandoff  = "client_download"
	WSMessageTypeWarning  = "warning"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSProgressMessage represents a progress update
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Progress    int       `json:"progress"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
}

// WSCompleteMessage represents a terminal success (completed or not_a_recipe)
type WSCompleteMessage struct {
	Type   string      `json:"type"`
	JobID  string      `json:"jobId"`
	Status JobStatus   `json:"status"`
	Result interface{} `json:"result,omitempty"`
}

// WSHandoffMessage tells the client to perform the media download itself
type WSHandoffMessage struct {
	Type    string          `json:"type"`
	JobID   string          `json:"jobId"`
	Handoff DownloadHandoff `json:"downloadHandoff"`
}

// WSErrorMessage represents an error
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSWarningMessage carries non-fatal conditions (e.g. billing failed after
// the recipe was already saved)
type WSWarningMessage struct {
	Type    string `json:"type"`
	JobID   string `json:"jobId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
