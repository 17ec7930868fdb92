// Package httpapi serves the engine over HTTP/JSON under /api/v1.
//
// Handlers decode the request, call one engine operation and map its sentinel
// errors to status codes. They hold no authentication logic of their own.
package httpapi
