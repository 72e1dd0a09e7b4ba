package proxy

import "errors"

var ErrInvalidEndpoint = errors.New("invalid proxy endpoint")
