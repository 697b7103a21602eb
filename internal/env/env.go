// Package env holds build metadata, set at link time with -ldflags "-X".
package env

const AppName = "disekt"

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildTime  = "unknown"
)
