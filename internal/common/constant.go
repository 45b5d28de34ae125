// Package common contains constants and tiny helpers shared by the client
// layers.
package common

// AuthorizationHeaderName is the HTTP header carrying the bearer credential.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the Authorization header value.
const BearerPrefix = "Bearer "

// Keys of the durable metadata store.
const (
	CredentialKey = "auth_token"
	LastEmailKey  = "last_email"
)

// AccessTokenQueryParam carries the bearer token on the hub URL.
const AccessTokenQueryParam = "access_token"
