// Package connection provides the HTTP client nocsrf-cli uses to talk to
// a running nocsrf-server. The client keeps a cookie jar so consecutive
// calls share one server-side session.
package connection
