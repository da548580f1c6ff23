// Package mcp exposes the meeting-context engine as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	meeterrors "github.com/Aman-CERP/meetprep/internal/errors"
)

// MCP error codes.
const (
	// ErrCodeIndexNotReady indicates no index version has been published.
	ErrCodeIndexNotReady = -32001

	// ErrCodeTimeout indicates the request timed out or was canceled.
	ErrCodeTimeout = -32003

	// Standard JSON-RPC error codes.
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// MCPError is a protocol error with a code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts an internal error to an MCPError.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}
	if me, ok := meeterrors.As(err); ok {
		return mapMeetError(me)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid tool arguments.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("Tool '%s' not found.", name)}
}

func mapMeetError(me *meeterrors.MeetError) *MCPError {
	message := me.Message
	if me.Suggestion != "" {
		message = fmt.Sprintf("%s. %s", me.Message, me.Suggestion)
	}

	code := ErrCodeInternalError
	if me.Category == meeterrors.CategoryValidation {
		code = ErrCodeInvalidParams
	}
	return &MCPError{Code: code, Message: message}
}
