package segment

import "errors"

// ErrInvalidState indicates an operation that requires a previous
// observation or event type was invoked with none recorded. It means a
// state-machine invariant was broken and the run must abort.
var ErrInvalidState = errors.New("segment: no previous observation recorded")

// ErrEmptySpan is returned when a token span contains no scenes.
var ErrEmptySpan = errors.New("segment: empty event span")
