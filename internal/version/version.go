package version

// Set at build time via -ldflags "-X ghoststream/internal/version.BuildDate=..."
var (
	AppName   = "ghoststream"
	BuildDate = ""
	GoVersion = ""
)
