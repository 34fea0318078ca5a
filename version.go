package fifoq

// Version is the current version of the go-fifoq library
const Version = "1.0.0"

// VersionInfo contains detailed version information
type VersionInfo struct {
	// Version is the semantic version
	Version string
	// Framing identifies the on-wire frame layout
	Framing string
	// MaxFrame is the largest supported frame size in bytes
	MaxFrame int
}

// GetVersion returns the current version information
func GetVersion() VersionInfo {
	return VersionInfo{
		Version:  Version,
		Framing:  "length-prefixed/fixed",
		MaxFrame: MaxFrameSize,
	}
}
