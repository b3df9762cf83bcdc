package versioninfo

// Set at build time with -ldflags "-X github.com/brk3/habitboard/pkg/versioninfo.Version=..."
var (
	Version   = "dev"
	BuildDate = "unknown"
)

type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"build_date"`
}
