package config

import "github.com/up2jj/redlimit/errcode"

// Configuration errors, module code 41.
var (
	ErrLoadFailed         = errcode.New(41, 1, "config", "failed to load configuration")
	ErrInvalidConfig      = errcode.New(41, 2, "config", "invalid configuration")
	ErrUnknownKeyStrategy = errcode.New(41, 3, "config", "unknown key strategy")
	ErrUnknownRedis       = errcode.New(41, 4, "config", "unknown redis instance")
)
