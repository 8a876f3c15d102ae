// Package service contains the application use cases for recurring task
// templates. It orchestrates domain objects and the repositories defined in
// internal/store, applying transactional boundaries where an operation reads
// and writes the same template.
//
// The service layer depends on domain entities and repository interfaces (from store),
// but never on specific infrastructure implementations.
package service
