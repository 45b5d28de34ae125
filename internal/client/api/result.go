package api

import (
	"context"
	"net/http"
)

// Do sends a request and returns the result pair: a decoded *T on success or
// an *Error on failure, never both. A 2xx response with an empty body yields
// a zero-value *T.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, isFile bool) (*T, error) {
	out := new(T)
	if err := c.Call(ctx, method, path, body, isFile, out); err != nil {
		return nil, err
	}
	return out, nil
}

func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	return Do[T](ctx, c, http.MethodGet, path, nil, false)
}

func Delete[T any](ctx context.Context, c *Client, path string) (*T, error) {
	return Do[T](ctx, c, http.MethodDelete, path, nil, false)
}

func Post[T any](ctx context.Context, c *Client, path string, body any, isFile bool) (*T, error) {
	return Do[T](ctx, c, http.MethodPost, path, body, isFile)
}

func Put[T any](ctx context.Context, c *Client, path string, body any, isFile bool) (*T, error) {
	return Do[T](ctx, c, http.MethodPut, path, body, isFile)
}

func Patch[T any](ctx context.Context, c *Client, path string, body any, isFile bool) (*T, error) {
	return Do[T](ctx, c, http.MethodPatch, path, body, isFile)
}

// Empty is the T to use for endpoints whose response body is ignored.
type Empty struct{}
