// Package worker implements the consumer side of the insight task protocol.
//
// A Consumer waits for wake-up notifications, pops one task per wake-up,
// claims its projectId:sprintId key, runs the insight engine under a renewed
// lease and announces the result on the completion or failure channel. A
// periodic backstop drains the queue so a missed notification never strands
// a task. A Pool runs several consumers in one process.
package worker
