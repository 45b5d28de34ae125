// Package api is the LearnHub REST client.
//
// # Overview
//
// Client dispatches requests against a fixed base address. Before every
// request it reads the session credential from a credentials.Store and, if
// one is present, sends it as "Authorization: Bearer <token>". Bodies are
// JSON unless the caller marks the request as a file upload, in which case
// the body must be a *Form and is sent as multipart/form-data.
//
// # Results
//
// The generic helpers Get, Delete, Post, Put and Patch return (*T, error).
// Exactly one of the two is non-nil: a decoded value on 2xx, an *Error
// otherwise. Nothing is retried.
//
// # Errors
//
// *Error carries the HTTP status (0 for transport failures), a message and
// any field-level validation errors. Match the kind with errors.Is against
// ErrUnavailable, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrValidation,
// ErrRequest and ErrServer.
package api
