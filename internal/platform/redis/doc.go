// Package redis implements the coord interfaces on top of a Redis server:
// the task queue is a list (LPUSH on insert, RPOP on remove), the claim
// registry is a set plus one lease key per claimed task key, and wake-up,
// completion and failure signals use Redis publish/subscribe.
//
// Every multi-step claim operation runs as a Lua script so that it is atomic
// against concurrent workers. Clients are constructed and owned by the
// caller; a process opens one client for commands and a second one for
// subscriptions.
package redis
