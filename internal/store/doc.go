// Package store declares the persistence ports of the scheduler: templates,
// execution records, task instances, tags, the group roster and custom
// holidays. Implementations live in internal/platform/postgres; the batch
// runner and services see only these interfaces and the store sentinels.
package store
