// Package wire decodes inbound realtime frames into typed events and
// encodes outbound payloads.
//
// Every inbound frame is a JSON object with a "type" discriminant:
//   - message:            {"type":"message","message":{id, chat_id, content, role, created_at, mode?}}
//   - chats_updated:      {"type":"chats_updated"}
//   - processing_started: {"type":"processing_started","chat_id":...}
//   - error:              {"type":"error","error":"..."}
//
// Decoding is all-or-nothing: a frame either yields a fully populated
// Event or a *DecodeError, never both.
package wire
