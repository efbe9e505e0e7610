package thread

import "errors"

// Common store errors.
var (
	// ErrThreadNotFound is returned by Store reads against an unknown thread
	// id. The Manager never propagates it: appends self-heal and reads return
	// an empty sentinel instead.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrSystemMessageAppend is returned when a system-role message is
	// handed to AppendMessage. System messages enter a thread at creation
	// only; appending one would grow the system count mid-conversation.
	ErrSystemMessageAppend = errors.New("system messages may only be set at thread creation")
)
