// Package transcription turns uploaded media into text through an
// OpenAI-compatible audio transcription endpoint.
//
// Video containers and other non audio-only uploads are probed for an audio
// stream and converted to 16 kHz mono PCM WAV with ffmpeg first. Files larger
// than the configured chunk size are split by duration into segments that are
// transcribed in order and joined with newlines.
package transcription
