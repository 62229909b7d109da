package avtransport

import (
	"errors"
	"fmt"

	fsm "github.com/enetx/upnpfsm"
)

// ErrorCode is a UPnP action error code.
type ErrorCode int

const (
	CodeInvalidArgs            ErrorCode = 402
	CodeActionFailed           ErrorCode = 501
	CodeTransitionNotAvailable ErrorCode = 701
	CodeNoContents             ErrorCode = 702
	CodeSeekModeNotSupported   ErrorCode = 710
	CodeIllegalSeekTarget      ErrorCode = 711
	CodeResourceNotFound       ErrorCode = 716
)

var descriptions = map[ErrorCode]string{
	CodeInvalidArgs:            "Invalid Args",
	CodeActionFailed:           "Action Failed",
	CodeTransitionNotAvailable: "Transition not available",
	CodeNoContents:             "No contents",
	CodeSeekModeNotSupported:   "Seek mode not supported",
	CodeIllegalSeekTarget:      "Illegal seek target",
	CodeResourceNotFound:       "Resource not found",
}

// Description returns the protocol description of the code.
func (c ErrorCode) Description() string {
	if d, ok := descriptions[c]; ok {
		return d
	}

	return fmt.Sprintf("Error %d", int(c))
}

// ActionError is the error returned by every facade action.
type ActionError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("avtransport: %d %s", e.Code, e.Code.Description())
	}

	return fmt.Sprintf("avtransport: %d %s: %s", e.Code, e.Code.Description(), e.Message)
}

func (e *ActionError) Unwrap() error { return e.Err }

func newActionError(code ErrorCode, format string, args ...any) *ActionError {
	return &ActionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Code returns the action error code of err, or CodeActionFailed when err is not an ActionError.
func Code(err error) ErrorCode {
	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr.Code
	}

	return CodeActionFailed
}

// toActionError maps an engine error onto the protocol error returned to control points.
func toActionError(err error) error {
	if err == nil {
		return nil
	}

	var actionErr *ActionError
	if errors.As(err, &actionErr) {
		return actionErr
	}

	var unsupported *fsm.ErrUnsupportedSignal
	if errors.As(err, &unsupported) {
		code := CodeTransitionNotAvailable

		// Next or Previous past the last or first track.
		if unsupported.Rejected && (unsupported.Signal == SignalNext || unsupported.Signal == SignalPrevious) {
			code = CodeIllegalSeekTarget
		}

		return &ActionError{
			Code:    code,
			Message: fmt.Sprintf("%s is not available in state %s", unsupported.Signal, unsupported.State),
			Err:     err,
		}
	}

	return &ActionError{Code: CodeActionFailed, Message: err.Error(), Err: err}
}
