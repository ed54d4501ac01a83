// Package cmd implements the cobra command tree for the bulkmail CLI:
// send, preview, version and shell completion.
package cmd
