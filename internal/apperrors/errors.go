package apperrors

// =============================================================================
// Error Codes
// =============================================================================

type ErrorCode string

const (
	ErrorCodeInternalError   ErrorCode = "INTERNAL_ERROR"
	ErrorCodeValidationError ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrorCodeConflict        ErrorCode = "CONFLICT"
	ErrorCodeDeviceOffline   ErrorCode = "DEVICE_OFFLINE"
	ErrorCodeCommandRejected ErrorCode = "COMMAND_REJECTED"
	ErrorCodeCommandTimeout  ErrorCode = "COMMAND_TIMEOUT"
	ErrorCodeCommandUnknown  ErrorCode = "COMMAND_UNKNOWN"
	ErrorCodePowerSequence   ErrorCode = "POWER_SEQUENCE_FAILED"
	ErrorCodeEventNotFound   ErrorCode = "EVENT_NOT_FOUND"
)

// ErrorBody is the serialized error payload.
type ErrorBody struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// =============================================================================
// Stripe API Error Types
// =============================================================================

// ErrorType categorizes errors following Stripe API conventions.
type ErrorType string

const (
	// ErrorTypeInvalidRequest indicates invalid parameters, missing required fields, etc.
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAPIError indicates an internal API error.
	ErrorTypeAPIError ErrorType = "api_error"
)

// StripeErrorBody is the Stripe-style error payload.
// Format: {"type": "invalid_request_error", "code": "NOT_FOUND", "message": "..."}
type StripeErrorBody struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// AppError is the base error type for HTTP responses.
type AppError struct {
	Code       ErrorCode
	Message    string
	StatusCode int
	Details    map[string]any
}

func (err *AppError) Error() string {
	return err.Message
}

func (err *AppError) ErrorBody() ErrorBody {
	body := ErrorBody{
		Code:    err.Code,
		Message: err.Message,
	}
	if err.Details != nil {
		body.Details = err.Details
	}
	return body
}

// StripeErrorBody returns the error in Stripe API format.
func (err *AppError) StripeErrorBody() StripeErrorBody {
	errType := ErrorTypeAPIError
	if err.StatusCode >= 400 && err.StatusCode < 500 {
		errType = ErrorTypeInvalidRequest
	}

	return StripeErrorBody{
		Type:    errType,
		Code:    string(err.Code),
		Message: err.Message,
	}
}

func NewAppError(code ErrorCode, message string, statusCode int, details map[string]any) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Details:    details,
	}
}

func NewValidationError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeValidationError, message, 400, details)
}

func NewNotFoundError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeNotFound, message, 404, details)
}

func NewConflictError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeConflict, message, 409, details)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrorCodeInternalError, message, 500, nil)
}

// NewDeviceOfflineError reports that the unit is unreachable or inside
// a shutdown cooldown.
func NewDeviceOfflineError(message string) *AppError {
	return NewAppError(ErrorCodeDeviceOffline, message, 503, nil)
}

// NewCommandRejectedError reports that the unit nacked or never
// acknowledged a command.
func NewCommandRejectedError(message string, details map[string]any) *AppError {
	return NewAppError(ErrorCodeCommandRejected, message, 502, details)
}

// EnsureAppError converts an arbitrary error into an AppError.
func EnsureAppError(err error) *AppError {
	if err == nil {
		return NewInternalError("Unknown error")
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return NewInternalError("Internal server error")
}
