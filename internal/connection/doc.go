// Package connection implements the WebSocket push feed.
//
// A Client owns one gorilla/websocket connection:
//   - Sends keepalive pings and flags the connection stale when pongs stop
//   - Timestamps every frame on receipt
//   - Reports the first read error and stops
//
// A Feed decodes price ticks from a Client and publishes them into the hub.
// Reconnection is left to the caller.
package connection
