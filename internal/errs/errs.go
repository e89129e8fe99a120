// Package errs defines the sentinel error kinds shared across the runtime
// kernel, mirroring original_source's StaticCoreError/NodeError/LoadError/
// GraphError enums as errors.Is-comparable sentinels instead of a closed
// Rust enum.
package errs

import "errors"

// Channel / registry errors (static_core.rs's StaticCoreError). Message
// text matches StaticCoreError::what() verbatim.
var (
	ErrOutOfMemory            = errors.New("out of memory")
	ErrChannelDisconnected    = errors.New("channel disconnected")
	ErrSubscriberDisconnected = errors.New("subscriber disconnected")
	ErrChannelFull            = errors.New("channel has maximum subscribers")
	ErrChannelTypeDiffers     = errors.New("channel exists, but has differing message type")
)

// Parameter Store errors. Not present in original_source (the parameter
// subsystem is a spec.md addition); message text is this port's own.
var (
	ErrNoSuchParam      = errors.New("no such parameter")
	ErrParamTypeDiffers = errors.New("parameter type differs")
)

// Plugin-loading errors (node_plugin.rs's LoadError, plugin_loader.rs).
var (
	ErrNoLibraryFound       = errors.New("no library found in search path")
	ErrLibraryMissingSymbol = errors.New("library missing symbol")
	ErrVtblNull             = errors.New("vtbl getter returned null")
	ErrVtblMissingFunction  = errors.New("vtbl missing function")
)

// Graph-loading errors (node_graph.rs's GraphError).
var (
	ErrGraphFile        = errors.New("graph file error")
	ErrGraphInput       = errors.New("graph input error")
	ErrGraphDeserialize = errors.New("graph deserialize error")
	ErrDuplicateName    = errors.New("duplicate node name")
	ErrInvalidParamKey  = errors.New("invalid parameter key")
)

// Core vtbl error codes. 1-5 match StaticCoreError::as_code() exactly;
// 6-7 are this port's own assignment for the parameter store, which has
// no original_source counterpart to match.
const (
	CodeOK = iota
	CodeOutOfMemory
	CodeChannelDisconnected
	CodeSubscriberDisconnected
	CodeChannelFull
	CodeChannelTypeDiffers
	CodeNoSuchParam
	CodeParamTypeDiffers
	CodeUnknown
)

// CodeFor maps a sentinel error to its Core vtbl wire code.
func CodeFor(err error) int {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrOutOfMemory):
		return CodeOutOfMemory
	case errors.Is(err, ErrChannelDisconnected):
		return CodeChannelDisconnected
	case errors.Is(err, ErrSubscriberDisconnected):
		return CodeSubscriberDisconnected
	case errors.Is(err, ErrChannelFull):
		return CodeChannelFull
	case errors.Is(err, ErrChannelTypeDiffers):
		return CodeChannelTypeDiffers
	case errors.Is(err, ErrNoSuchParam):
		return CodeNoSuchParam
	case errors.Is(err, ErrParamTypeDiffers):
		return CodeParamTypeDiffers
	default:
		return CodeUnknown
	}
}

// MessageFor is the inverse lookup a get_err_msg slot serves back to a
// plugin given a code this package produced.
func MessageFor(code int) string {
	switch code {
	case CodeOK:
		return ""
	case CodeOutOfMemory:
		return ErrOutOfMemory.Error()
	case CodeChannelDisconnected:
		return ErrChannelDisconnected.Error()
	case CodeSubscriberDisconnected:
		return ErrSubscriberDisconnected.Error()
	case CodeChannelFull:
		return ErrChannelFull.Error()
	case CodeChannelTypeDiffers:
		return ErrChannelTypeDiffers.Error()
	case CodeNoSuchParam:
		return ErrNoSuchParam.Error()
	case CodeParamTypeDiffers:
		return ErrParamTypeDiffers.Error()
	default:
		return "unknown error"
	}
}
