package common

// MaxMessageLength is the largest message body, in characters, that the
// messages.message column accepts.
const MaxMessageLength = 255

// RequestIDHeaderName carries the per-request correlation id on HTTP requests
// and responses.
const RequestIDHeaderName = "X-Request-ID"
