// Package main hosts the quill entrypoint and command graph.
//
// Running quill without a subcommand starts the TUI. The subcommands expose
// the same backend operations for scripts: listing novels and chapters,
// requesting a parse and following it to completion, printing chapter text
// and audio manifests, and reading, exporting or following backend logs.
//
// Structured output is selected with -o table|json|yaml.
package main
