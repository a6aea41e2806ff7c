// Package http is the HTTP transport of the reference sync backend.
//
// Public routes cover the health probe, the build version and device token
// issuing. POST /api/sync/batch sits behind JWT device auth and the
// HashSHA256 body signature check; its response is signed the same way.
// Trace ids, access logs, gzip and CORS are applied to every route.
package http
