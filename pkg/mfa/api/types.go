package api

// IssueCodeRequest asks for a passcode to be sent to a user
type IssueCodeRequest struct {
	UserID string `json:"user_id"`
}

// IssueCodeResponse reports the channel the passcode was sent through
type IssueCodeResponse struct {
	Channel string `json:"channel"`
}

// VerifyCodeRequest carries the passcode submitted by the user
type VerifyCodeRequest struct {
	Code string `json:"code"`
}

// VerifyCodeResponse identifies the user the passcode belonged to
type VerifyCodeResponse struct {
	UserRef string `json:"user_ref"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}
