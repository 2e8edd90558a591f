package errors

const (
	HttpInternalError      = "internal_error"
	HttpInvalidJsonError   = "invalid_json"
	HttpInvalidParamError  = "invalid_parameter"
	HttpNotFoundError      = "not_found"
	HttpDuplicateHandError = "duplicate_hand"
	HttpLockHeldError      = "lock_held"
	HttpConsistencyError   = "consistency_error"
	HttpCachesStaleError   = "caches_stale"
)

// ErrorResponse is the error response body for every API error.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}
