// Package api exposes the diagnostic, planning, mastery and reminder services
// over HTTP. Handlers translate requests into service calls and map service
// errors to status codes and safe messages.
package api
