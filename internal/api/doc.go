// Package api defines the JSON payload types exchanged between the
// daemon's HTTP surface and its clients, plus converters from internal
// records. Both the server handlers and the CLI client decode into
// these types, so wire compatibility lives in one place.
package api
