// Package configs embeds the configuration templates written by
// `meetprep config init`.
//
// Both templates carry every setting commented out, so a freshly written
// file loads to the built-in defaults. Edit the .yaml files here and
// rebuild to change them.
package configs

import _ "embed"

// UserConfigTemplate is written to the user config path.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// CorpusConfigTemplate is written to .meetprep.yaml in a corpus root.
//
//go:embed corpus-config.example.yaml
var CorpusConfigTemplate string
