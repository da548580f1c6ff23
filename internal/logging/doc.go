// Package logging configures structured slog output for meetprep.
//
// Without --debug the CLI logs warnings to stderr only. With --debug, JSON
// logs at debug level go to ~/.meetprep/logs/meetprep.log with size-based
// rotation. The MCP server never writes logs to stdout, which carries the
// protocol stream.
package logging
