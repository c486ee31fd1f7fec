// Package server exposes scenarios and jobs over HTTP.
//
// All resources live below /api and are plain JSON documents with a _links
// section pointing to related resources. Creating a job starts it in the
// background; its results, progress and metrics can then be followed as
// record streams, or all at once over the websocket at /api/jobs/{id}/events.
//
// Record streams answer with a JSON array, or with application/json-seq
// (RFC 7464) framing when the client accepts it. Either way the response
// ends once the job has finished, and a stream without any record answers
// 204 No Content.
//
// Prometheus metrics are served at /metrics.
package server
