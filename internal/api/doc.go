// Package api serves the HTTP surface of the request-serving process:
// accepting insight generation requests, reporting whether a sprint is being
// processed and returning stored insights. It translates HTTP concerns into
// calls on the task publisher and the insight store.
package api
