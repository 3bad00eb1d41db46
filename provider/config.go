package provider

import (
	"os"
	"runtime"
)

// Environment variables overriding where provider libraries are looked up.
const (
	EnvLibraryPrefix = "NIMBELLA_SDK_PREFIX"
	EnvLibrarySuffix = "NIMBELLA_SDK_SUFFIX"
)

// DefaultLibraryDir is the directory provider libraries are installed to.
const DefaultLibraryDir = "/usr/local/lib"

// Config locates provider libraries on disk.
type Config struct {
	// Prefix is the directory holding the libraries.
	Prefix string
	// Suffix is the library file extension, including the dot.
	Suffix string
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		Prefix: DefaultLibraryDir,
		Suffix: PlatformSuffix(),
	}
}

// ConfigFromEnv loads the configuration from the environment, falling back
// to the platform defaults.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Prefix: getEnv(EnvLibraryPrefix, def.Prefix),
		Suffix: getEnv(EnvLibrarySuffix, def.Suffix),
	}
}

// PlatformSuffix returns the dynamic library extension of the running OS.
func PlatformSuffix() string {
	switch runtime.GOOS {
	case "darwin", "ios":
		return ".dylib"
	case "windows":
		return ".dll"
	default:
		return ".so"
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
