package api

import "errors"

// ErrBadRequest marks a request body that could not be decoded.
var ErrBadRequest = errors.New("bad request")
