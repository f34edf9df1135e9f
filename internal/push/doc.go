// Package push is the realtime gateway to browser clients. Clients connect
// over a websocket, join rooms such as sprint-insight/10 and receive a small
// JSON event whenever something is broadcast to a room they joined.
package push
