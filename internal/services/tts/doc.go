// Package tts provides an ElevenLabs text-to-speech client.
//
// Narration stages hand it prose and a voice id; the client streams the
// synthesized MP3 to a target path. Requests retry on HTTP 429/5xx and
// network timeouts with exponential backoff. The partial output file is
// removed whenever synthesis fails.
package tts
