// Package store defines the persistence boundary for generated sprint
// insights. Implementations live under platform/postgres; the worker and the
// API only depend on the interfaces declared here.
package store
