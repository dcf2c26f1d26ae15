package version

// Version is the build version of the forex-trader binaries, set with
// -ldflags "-X github.com/mattxander12/forex-trader/internal/version.Version=1.2.3".
// "main" marks a development build.
var Version = "main"

// ModelFormat is the version written into saved classifier model files. Bump
// the minor version whenever the feature vector or model layout changes.
const ModelFormat = "1.1.0"

// GetVersion returns the build version.
func GetVersion() string {
	return Version
}
