// Package config loads quill's TOML configuration.
//
// # Overview
//
// quill needs to know where the novel backend lives, how often to poll it,
// and which model to request when parsing. Everything has a default, so a
// missing file is not an error and quill works against a local dev backend
// out of the box.
//
// # Resolution
//
// Load follows this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/quill/config.toml
//  3. If the file doesn't exist, return Default()
//  4. Blank or non-positive fields keep their defaults
//
// # Defaults
//
//   - api_base: http://127.0.0.1:8888/api
//   - ws_base: derived from api_base (ws or wss scheme, path /ws)
//   - poll_seconds: 2
//   - model: default
//   - page_size: 50 (0 fetches every chapter in one request)
//   - request_timeout_seconds: 10
//   - state_dir: ~/.local/state/quill
//
// # TOML Format
//
//	api_base = "http://127.0.0.1:8888/api"
//	poll_seconds = 2
//	model = "default"
//	page_size = 50
//
// Command-line flags override the file through helpers such as WithAPIBase,
// which keeps a derived ws_base in step with the new API root.
package config
