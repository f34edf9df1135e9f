// Package gemini implements generation.TextGenerator on top of Google's
// Gemini API through the google.golang.org/genai client.
//
// Calls are retried with exponential backoff and jitter when the failure
// looks transient. Safety blocks and unusable responses are permanent and
// returned immediately, wrapped in the generation sentinel errors.
package gemini
