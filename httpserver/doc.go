/*
Package httpserver serves a diagnostic view of the SDK of a running process.

The server exposes the usual health and drain endpoints plus read-only
inspection of the resources the SDK resolves from its environment:

	GET /livez                          process is up
	GET /readyz                         503 while draining
	GET /drain, /undrain                toggle readiness
	GET /api/providers                  storage providers resolved so far
	GET /api/storage/{kind}/url         bucket name and URL, kind is web or data
	GET /api/storage/{kind}/files       object names, optional ?prefix=
	GET /api/kv/{key}                   value of a key

Errors are reported as plain text. The status code is derived from the SDK
error: missing environment or credentials map to 503, an unknown provider to
404, invalid input to 400 and anything else to 500.

Prometheus metrics are served by a separate listener on MetricsAddr.
*/
package httpserver
