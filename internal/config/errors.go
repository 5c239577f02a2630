package config

import "errors"

var (
	// ErrInvalidConfig wraps every rejected setting; the message names the key.
	ErrInvalidConfig = errors.New("invalid prodplan config")
	// ErrLoadConfig wraps failures reading the YAML file or the environment.
	ErrLoadConfig = errors.New("cannot load prodplan config")
)
