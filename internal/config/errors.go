package config

import "errors"

// ErrNotFound indicates no config file exists in any search location.
var ErrNotFound = errors.New("config not found")
