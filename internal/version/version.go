package version

// Version is stamped at build time via -ldflags "-X ...version.Version=".
var Version = "0.1.0-dev"
