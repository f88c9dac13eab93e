// Package cmd implements the command-line interface of dLog.
//
// The package is organized into several subpackages:
//
//   - emit: write records as frames to a sink
//   - decode: read a frame stream from a file or stdin and print the records
//   - listen: receive frames from socket sinks and print the records
//   - bench: measure the frame lock under concurrent producers
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set via environment variables DLOG_<FLAG>, .env and
// .env.local files are loaded on startup.
//
// See dlog -help for a list of all commands.
package cmd
