// Package observability builds the process logger and the request logging
// middleware that writes one structured line per HTTP request.
package observability
