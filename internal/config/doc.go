// Package config loads, merges and validates configuration.
//
// Sources are applied in this order, later non-zero fields winning:
//  1. Environment variables
//  2. Command-line flags
//  3. Config file (JSON, YAML or TOML)
//
// Fields still zero afterwards take the value from [Defaults]. Runtimes use
// [GetClientConfig] or [GetServerConfig]; tools that have no flags of their
// own use [LoadClientConfig].
package config
