// Package bridge isolates all deadline and suspension logic behind a
// single "run to completion or deadline" primitive.
//
// Every public connector operation is a synchronous entry point over
// asynchronous database I/O. Rather than sprinkling context plumbing and
// timer races through each call site, a Runner owns the race: it executes
// the operation, parks the calling goroutine until a result or expiry is
// available, and reports which one won. A fired deadline returns control
// to the caller immediately; it does not guarantee the server stopped
// working on the statement.
package bridge
