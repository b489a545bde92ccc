package tools

import "fmt"

type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "tool.not_found"
	ErrCodeValidation   ErrorCode = "validation.rejected"
	ErrCodeResolution   ErrorCode = "resolution.failed"
	ErrCodeBackend      ErrorCode = "backend.failed"
	ErrCodeProvisioning ErrorCode = "provisioning.failed"
	ErrCodePriceFetch   ErrorCode = "price.failed"
	ErrCodeDelivery     ErrorCode = "channel.delivery_failed"
)

// ToolError carries the internal failure detail for one invocation. The
// rendered text shown to the end user is produced separately and never
// includes this.
type ToolError struct {
	Code    ErrorCode
	Tool    string
	Message string
	Cause   error
}

func (e *ToolError) Error() string {
	if e.Tool == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Tool, e.Message)
}

func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func wrapError(code ErrorCode, tool string, err error) error {
	if err == nil {
		return nil
	}
	return &ToolError{Code: code, Tool: tool, Message: err.Error(), Cause: err}
}
