// Package loop implements the BRIO instruction loop: the per-connection
// Listen → Auth → Ready → Done state machine from spec.md §4.5, layered
// over package transport and package brio.
//
// Grounded on the accept-loop idiom in kryptco-kr's ServeKRAgent
// (krd/ssh_agent.go), logging through *logging.Logger, but without its
// goroutine per connection: Server.Serve accepts and services one
// connection per call, and each connection gets its own decoder/encoder
// state rather than sharing it.
package loop

import "errors"

// ErrAuthFailed is spec.md §7's auth-failed kind: the Auth state's key
// did not match the configured key. The connection is closed immediately
// after the first frame.
var ErrAuthFailed = errors.New("auth-failed")
