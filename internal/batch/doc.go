// Package batch materializes task instances from recurring templates for one
// calendar date at a time.
//
// RunDailyBatch loads every runnable template, evaluates each schedule entry
// against the run date and, for each occurrence that fires, reconciles the
// previous instance, resolves an assignee, creates the task with its tags and
// appends a success record, all in one transaction. Every occurrence ends in
// exactly one execution record (success, skipped or failed) unless a terminal
// record for it already exists, which makes re-running a date a no-op.
//
// Templates are processed concurrently by a bounded pool. A failure, timeout
// or panic while handling one occurrence is recorded as a failed execution and
// never aborts the batch.
package batch
