package response

// Result is the body every check-in style endpoint answers with
type Result struct {
	OK    bool   `json:"ok,omitempty"`    // true on success only
	Error string `json:"error,omitempty"` // human-readable failure
}
