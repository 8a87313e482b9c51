// Package command provides shared metadata for the fluvio-command tool.
package command

// Version is the fluvio-command release version.
const Version = "0.1.0"
