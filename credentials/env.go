package credentials

import "os"

// Environment variables read by the router.
const (
	EnvStorageKey = "__NIM_STORAGE_KEY"
	EnvNamespace  = "__OW_NAMESPACE"
	EnvAPIHost    = "__OW_API_HOST"
)

// Env is the deployment context of the running function.
type Env struct {
	Namespace string
	APIHost   string
}

// EnvFromOS reads the namespace and API host from the process environment.
func EnvFromOS() Env {
	return Env{
		Namespace: os.Getenv(EnvNamespace),
		APIHost:   os.Getenv(EnvAPIHost),
	}
}

// Complete reports whether both namespace and API host are set.
func (e Env) Complete() bool {
	return e.Namespace != "" && e.APIHost != ""
}
