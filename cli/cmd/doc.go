// Package cmd implements the subcommands of the dproj command line.
//
// Commands that read a project take a [*Globals] binding and resolve it to
// a merged property view. Results go to the writer stored with
// [WithOutput], standard output by default.
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path
	// of the configuration file without its extension.
	ConfigIdentifier = "config"
)
