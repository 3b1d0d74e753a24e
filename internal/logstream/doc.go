// Package logstream follows the backend's real-time log WebSocket.
//
// The backend pushes log records on {ws_base}/logs. A frame is a JSON object
// with timestamp, level and message fields, a JSON array of such objects, or
// plain text lines in the same layout as /logs. Subscribe turns all of them
// into Entry values on a buffered channel.
//
// A subscription lives until its context is cancelled or the server closes
// the connection. There is no reconnect; callers that want one subscribe
// again. Err distinguishes a dropped connection from a normal end.
package logstream
