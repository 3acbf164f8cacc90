package publish

import "errors"

// ErrFatalSend marks a publisher bind failure, returned by
// NewPublisher. Unlike a transient send error (which Run counts and
// keeps draining past), it is fatal to startup: no Publisher is built.
var ErrFatalSend = errors.New("publish: fatal socket error")
