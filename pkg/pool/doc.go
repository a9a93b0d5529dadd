// Package pool makes non-thread-safe rendering backends usable from
// concurrent code.
//
// A renderer.Backend must only ever be touched by its owner. This package
// provides the two ownership models:
//
// SerialPool starts one goroutine that constructs and exclusively owns a
// backend. Callers from any goroutine submit requests over a channel and
// wait on a per-request completion channel. Requests are processed one at
// a time in arrival order. Global() exposes a process-wide SerialPool that
// is created on first use and lives for the rest of the process.
//
// ProcessPool runs N worker subprocesses, each a re-execution of the
// current binary with the worker flag, each owning one backend. Requests
// are encoded with pkg/wire, written to a worker's stdin, and correlated
// back by request id from its stdout. Workers are selected round robin;
// up to N renders proceed in parallel while each worker stays strictly
// serial. stdout carries frames only; worker logging goes to stderr.
//
// Both pools resolve style paths the same way: a request names the style
// it needs, the owner reloads only when the path differs from the last
// successfully loaded one, and a load failure leaves the cached path
// unchanged so the next request retries.
//
// Neither pool restarts a dead owner. A SerialPool whose goroutine is gone
// and a ProcessPool worker whose process died keep failing requests with a
// CHANNEL_CLOSED error; construction of a fresh pool is the recovery path.
package pool
