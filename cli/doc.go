// Package cli contains the command line interface for dproj.
//
// # Usage
//
//	dproj [flags] <command> [args]
//
// Commands that read a project use the only *.dproj file in the working
// directory unless --project names one. The configuration and platform
// default to the Config and Platform properties of the project.
//
//	dproj props                        # every property, expanded
//	dproj get -c Release -P Win64 DCC_ExeOutput
//	dproj set DCC_Define 'DEBUG;TRACE;$(DCC_Define)'
//	dproj paths -r rsvars.bat          # unit search path, one per line
//	dproj query 'split(props.DCC_Namespace)'
//
// # Environment
//
// References that name no property resolve from the environment: the
// process environment, then each --rsvars script, then each --env-file,
// then each --define. Every flag can also be set through an environment
// variable named after it with the DPROJ_ prefix, such as DPROJ_PROJECT.
//
// # Configuration
//
// Flag defaults are read from config.json, config.yaml, or config.toml in
// the user configuration directory. "dproj init" writes one holding the
// current flags. Keys are flag names, spelled with hyphens or underscores,
// or nested by prefix:
//
//	log:
//	  level: debug
//	max-depth: 16
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o dproj .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default: the pprof
//     directory of the user cache directory)
package cli
