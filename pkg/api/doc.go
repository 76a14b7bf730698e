// Package api holds the public HTTP/JSON schema of a chain node and a typed
// client for it. The server side lives in internal/api.
package api
