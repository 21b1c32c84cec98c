package mcp

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("mcp: not connected")

// ToolInvocationError reports a failed tool call.
type ToolInvocationError struct {
	Tool string
	Err  error
}

func (e *ToolInvocationError) Error() string {
	return fmt.Sprintf("mcp tool %q: %v", e.Tool, e.Err)
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}

// ProviderError is the error text a provider returned with an isError result.
type ProviderError struct {
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return "provider reported an error"
	}
	return e.Message
}

// ResourceLoadError reports a resource that could not be read.
type ResourceLoadError struct {
	URI string
	Err error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("load resource %s: %v", e.URI, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}
