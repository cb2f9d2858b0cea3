package services

import "errors"

// ErrNotReady is returned by read accessors before the first pipeline
// run has completed.
var ErrNotReady = errors.New("no pipeline snapshot available yet")
