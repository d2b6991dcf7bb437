// Package main hosts the aisubs CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into runs of
// the transcription and translation pipelines, subtitle inspection, run
// history queries, directory watching and configuration scaffolding. It
// centralizes configuration resolution and logger construction so
// subcommands only assemble a request and render the result.
//
// Keep this package lean: new behaviour belongs in the internal packages
// first and is surfaced here through flags.
package main
