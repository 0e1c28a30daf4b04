// Package queue serializes conversions through a single worker and reports
// job progress and ETA to pollers.
//
// Manager owns the job table, the FIFO of waiting jobs and the upload payloads.
// Exactly one worker goroutine consumes the queue, so at most one job is ever
// running. Status readers take the same short-held mutex the worker uses and
// receive copies, never live job records.
package queue
