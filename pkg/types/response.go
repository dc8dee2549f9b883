package types

// Transport status codes carried in the response envelope. ErrorCode doubles
// as the HTTP status when the envelope is surfaced over HTTP.
const (
	CodeOK               = 200
	CodeCreated          = 201
	CodeAccepted         = 202
	CodeDeclined         = 400
	CodeUnauthorized     = 401
	CodeNotFound         = 404
	CodePayloadTooLarge  = 413
	CodeValidationFailed = 422
	CodeInternal         = 500
)

// APIResponse is the uniform envelope returned by every core operation.
// Callers branch on Success, never on error types, for expected outcomes.
type APIResponse struct {
	Success   bool                   `json:"success"`
	ErrorCode int                    `json:"error_code"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Errors    map[string]interface{} `json:"errors,omitempty"`
}

// OK builds a success envelope
func OK(message string, code int, data map[string]interface{}) *APIResponse {
	return &APIResponse{Success: true, ErrorCode: code, Message: message, Data: data}
}

// Declined builds a business-rule rejection envelope. The request was well
// formed; a rule (unknown owner, duplicate id, oversized payload) refused it.
func Declined(message string, code int, errs map[string]interface{}) *APIResponse {
	return &APIResponse{Success: false, ErrorCode: code, Message: message, Errors: errs}
}

// Error builds an unexpected-failure envelope
func Error(message string, code int, errs map[string]interface{}) *APIResponse {
	return &APIResponse{Success: false, ErrorCode: code, Message: message, Errors: errs}
}

// NotFound builds the envelope used for missing resources and for resources
// owned by another user; the two are indistinguishable on purpose.
func NotFound(message string) *APIResponse {
	return &APIResponse{Success: false, ErrorCode: CodeNotFound, Message: message}
}
