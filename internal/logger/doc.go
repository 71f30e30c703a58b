// Package logger wraps zap with a process-wide sugared logger that writes a
// compact console format to stderr, keeping stdout free for command output.
//
// Loggers travel in the context: ToContext/FromContext carry them, WithName
// and WithKV derive scoped children, and the package-level helpers (InfoKV,
// ErrorKV, ...) always log through the logger found in the context.
package logger
