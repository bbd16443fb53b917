// Package notifications delivers job events via ntfy.
//
// The ntfy topic comes from config.toml (or CLIPMATO_NTFY_TOPIC) and the
// service degrades to a no-op when it is unset. Callers publish an Event with
// a Payload; per-event toggles in the notifications section decide which
// events are actually sent.
package notifications
