// Package insight generates the sprint insight report for a task. For every
// category it renders a prompt, asks a generation.TextGenerator for the text
// and stores the results through a store.InsightStore.
package insight
