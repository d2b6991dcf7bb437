// Package preflight provides readiness checks for the external tools,
// service credentials and filesystem paths that aisubs depends on.
//
// These checks run in two contexts:
//   - The transcription and translation pipelines call CheckOutputWritable
//     and CheckMediaTools before doing any audio or network work.
//   - The CLI "aisubs status" command calls RunAll to display overall health.
package preflight
