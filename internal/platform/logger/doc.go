// Package logger sets up the process-wide slog JSON logger and carries
// request-scoped loggers through a context.Context, so that store and service
// code logs with the trace and user attributes of the request it serves.
package logger
