package bridge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/simbridge/internal/protocol"
)

var (
	// ErrTransport marks a socket failure. The session has been shut down.
	ErrTransport = errors.New("bridge: transport failure")
	// ErrResolution marks a capability without a usable implementation.
	ErrResolution = errors.New("bridge: command resolution failed")
	// ErrUnsupportedOperation is returned by operations a backend cannot provide.
	ErrUnsupportedOperation = errors.New("bridge: unsupported operation")
	// ErrUnsupportedByVersion is returned for commands newer than the engine's API.
	ErrUnsupportedByVersion = errors.New("bridge: command not supported by engine version")
	ErrClosed               = errors.New("bridge: closed")
	ErrFactoryExists        = errors.New("bridge: factory already registered")
	ErrVersionQuery         = errors.New("bridge: could not retrieve engine version")
)

// Status is the engine's verdict on one command.
type Status struct {
	Code        uint8
	Description string
}

func (s Status) OK() bool {
	return s.Code == protocol.StatusOK
}

func (s Status) String() string {
	switch s.Code {
	case protocol.StatusOK:
		return "ok"
	case protocol.StatusNotImplemented:
		return "not implemented: " + s.Description
	case protocol.StatusError:
		return "error: " + s.Description
	default:
		return fmt.Sprintf("status 0x%02x: %s", s.Code, s.Description)
	}
}

// CommandError reports a non-OK status. The session stays usable.
type CommandError struct {
	Command string
	Status  Status
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("bridge: command %s failed: %s", e.Command, e.Status)
}

// ResolutionError explains why a capability could not be resolved.
type ResolutionError struct {
	Capability string
	Namespaces []string
	Reason     string
	Err        error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("bridge: resolve %s in [%s]: %s", e.Capability, strings.Join(e.Namespaces, ","), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// IsSessionFatal reports whether err leaves the session unusable.
func IsSessionFatal(err error) bool {
	return errors.Is(err, ErrTransport) ||
		errors.Is(err, ErrClosed) ||
		errors.Is(err, protocol.ErrFraming) ||
		errors.Is(err, protocol.ErrUnknownType)
}

// StatusOf extracts the engine status carried by err, if any.
func StatusOf(err error) (Status, bool) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Status, true
	}
	return Status{}, false
}
