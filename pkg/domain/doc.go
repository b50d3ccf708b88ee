// Package domain defines the shared request, response, and error types used
// across the proxy core. It is intentionally dependency-free: transport,
// auth, routing, and upstream packages all speak these types without
// importing each other.
package domain
