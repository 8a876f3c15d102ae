// Package events publishes what the batch runner did, task materializations
// and skipped occurrences, to listeners such as notification delivery.
// Events are emitted only after the owning transaction commits, and a
// failing handler never changes an occurrence's outcome.
package events
