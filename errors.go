package cinder

import (
	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/news"
)

var (
	// ErrInvalidConfig is wrapped by New when an option or loaded value is invalid.
	ErrInvalidConfig = config.ErrInvalidConfig
	// ErrInvalidResponse is logged when the provider answers without articles.
	ErrInvalidResponse = news.ErrInvalidResponse
)
