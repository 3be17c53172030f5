package version

// Version contains the application version information.
// This should be set via build-time ldflags in release builds:
// go build -ldflags "-X github.com/jianjungki/protogen/internal/version.Version=v0.2.0".
var Version = "unknown"

// BuildInfo contains additional build metadata.
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)
