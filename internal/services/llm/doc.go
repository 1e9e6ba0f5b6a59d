// Package llm provides an OpenRouter chat completion client for content
// generation.
//
// This package is used by:
//   - Text stages: story prose, educational scripts, social posts
//   - Podcast stage: episode scripts
//   - Book stages: chapter outlines and chapter contents
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Complete: send system/user prompts, receive plain prose.
// Client.CompleteJSON: same request in JSON-only mode for structured output.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors, empty completions, and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default). A Retry-After header is honored when present.
// Context cancellation aborts retries immediately.
package llm
