// Package jobs runs the background "file-processing" queue on Redis lists.
//
// [Queue] stores jobs in four lists per queue (waiting, active, completed,
// failed). [Worker] moves jobs from waiting to active with BLMOVE, runs the
// handler registered for the job name and records the outcome in a bounded
// history list. [Dispatcher] is the non-blocking front the engine submits to:
// it buffers jobs in memory and enqueues them from a single goroutine, so a
// slow or unavailable Redis never delays an authentication call.
package jobs
