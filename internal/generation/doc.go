// Package generation defines the boundary between the insight engine and
// external LLM services. Implementations of TextGenerator (such as the Gemini
// adapter in platform/gemini) turn a rendered prompt into prose and report
// failures with the sentinel errors in this package.
package generation
