// Package common holds small helpers shared by the binaries: version
// information and logger setup.
package common

// PackageName is used as the metrics namespace and default log service tag.
const PackageName = "walletsession"

// Version is overridden at build time with -ldflags "-X ...common.Version=...".
var Version = "dev"
