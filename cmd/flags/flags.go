package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/serverless-sdk/builtin"
	"github.com/ruteri/serverless-sdk/common"
	"github.com/ruteri/serverless-sdk/credentials"
	"github.com/ruteri/serverless-sdk/httpserver"
	"github.com/ruteri/serverless-sdk/libfetch"
	"github.com/ruteri/serverless-sdk/provider"
	"github.com/ruteri/serverless-sdk/sdk"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

// ConfigureSDK builds the SDK configuration from the flags, whose values
// default to the same environment variables the SDK reads on its own.
func ConfigureSDK(cCtx *cli.Context, logger *slog.Logger) (sdk.Config, error) {
	cfg, err := sdk.ConfigFromEnv(logger)
	if err != nil {
		return sdk.Config{}, err
	}

	cfg.Provider = provider.Config{
		Prefix: cCtx.String(LibraryPrefixFlag.Name),
		Suffix: cCtx.String(LibrarySuffixFlag.Name),
	}
	cfg.Env = credentials.Env{
		Namespace: cCtx.String(NamespaceFlag.Name),
		APIHost:   cCtx.String(APIHostFlag.Name),
	}
	if key := cCtx.String(StorageKeyFlag.Name); key != "" {
		cfg.Source = credentials.StaticSource(key)
	}
	if cCtx.Bool(StaticFlag.Name) {
		cfg.Loader = builtin.Loader()
	}
	return cfg, nil
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *httpserver.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &httpserver.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

var NamespaceFlag = &cli.StringFlag{
	Name:    "namespace",
	EnvVars: []string{credentials.EnvNamespace},
	Usage:   "namespace owning the buckets",
}
var APIHostFlag = &cli.StringFlag{
	Name:    "api-host",
	EnvVars: []string{credentials.EnvAPIHost},
	Usage:   "API host of the deployment, e.g. https://apigcp.nimbella.io",
}
var StorageKeyFlag = &cli.StringFlag{
	Name:    "storage-key",
	EnvVars: []string{credentials.EnvStorageKey},
	Usage:   "JSON credential blob; read from Vault when empty and NIMBELLA_SDK_VAULT_PATH is set",
}

var LibraryPrefixFlag = &cli.StringFlag{
	Name:    "library-prefix",
	Value:   provider.DefaultLibraryDir,
	EnvVars: []string{provider.EnvLibraryPrefix},
	Usage:   "directory holding provider libraries",
}
var LibrarySuffixFlag = &cli.StringFlag{
	Name:    "library-suffix",
	Value:   provider.PlatformSuffix(),
	EnvVars: []string{provider.EnvLibrarySuffix},
	Usage:   "file extension of provider libraries",
}
var LibrarySourceFlag = &cli.StringFlag{
	Name:    "source",
	EnvVars: []string{libfetch.EnvSource},
	Usage:   "base URL provider libraries are downloaded from",
}
var StaticFlag = &cli.BoolFlag{
	Name:  "static",
	Value: false,
	Usage: "use the providers linked into this binary instead of shared libraries",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: "nimsdk",
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var LogFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
}

var SDKFlags = []cli.Flag{
	NamespaceFlag,
	APIHostFlag,
	StorageKeyFlag,
	LibraryPrefixFlag,
	LibrarySuffixFlag,
	StaticFlag,
}

var ServerFlags = []cli.Flag{
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
