// Package imagegen fetches generated images from the Pollinations API.
//
// The service is keyless: the prompt travels in the URL path and rendering
// options as query parameters. A fixed seed makes a prompt reproducible.
// Responses smaller than a sanity threshold are treated as failures since
// the API reports some errors as tiny placeholder bodies.
package imagegen
