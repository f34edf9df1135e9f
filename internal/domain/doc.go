// Package domain contains the core entities of the sprint insight pipeline:
// the Task handed from the request-serving process to workers, the Task Key
// that identifies exclusive work, and the SprintInsight records produced by
// generation. It is independent of any specific coordination store or
// delivery mechanism.
package domain
