package common

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

const PackageName = "github.com/ruteri/serverless-sdk"
