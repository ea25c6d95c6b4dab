// Package config loads the client settings.
//
// Settings come from three layers, later layers winning:
//
//  1. Default()
//  2. a YAML file (see Load)
//  3. FBX_* environment variables
//
// The command line applies its flags on top of the loaded Config.
//
// Example file:
//
//	base_url: http://mafreebox.freebox.fr
//	api_version: v8
//	app_id: dev.fbxctl.cli
//	poll_interval: 2s
//	secret_backend: keyring
package config
