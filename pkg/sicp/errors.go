package sicp

import "errors"

var (
	ErrNoReply          = errors.New("no reply from display")
	ErrRejected         = errors.New("display rejected command")
	ErrUnknownInput     = errors.New("input not configured")
	ErrUnconfiguredAxis = errors.New("axis has no configured command codes")
)

// replyError converts a classified reply into an error. An indeterminate
// reply is not an error; the command may well have been applied.
func replyError(c Classification) error {
	if c.Rejected() {
		return ErrRejected
	}
	return nil
}
