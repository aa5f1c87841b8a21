// Package connection implements the realtime Connection Manager.
//
// The Connection Manager:
//   - Owns the single persistent WebSocket to {ws|wss}://host/ws/{clientId}
//   - Keeps one client identity for its whole lifetime, across reconnects
//   - Tracks Disconnected / Connecting / Connected and reports transitions
//   - Reconnects after abnormal closes on the reconnect policy's schedule
//   - Decodes inbound frames and hands them to the dispatcher in receipt order
//   - Runs every caller callback on one goroutine, never concurrently
package connection
