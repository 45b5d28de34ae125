// Package services wraps the LearnHub REST endpoints in typed calls. Each
// request body is a struct with validator tags, so malformed input is
// rejected before it reaches the network.
package services
