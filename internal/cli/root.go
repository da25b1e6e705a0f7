// Package cli implements the legalize command-line interface.
//
// # Commands
//
//   - run: legalize a Bookshelf benchmark (or JSON design) and write the result
//   - clusters: render the cluster partition of a design for debugging
//   - serve: expose the pipeline over HTTP
//   - cache: manage the local result cache
//   - completion: generate shell completion scripts
//
// # Logging
//
// All commands log through the CLI's charmbracelet logger; --verbose (-v),
// registered by the binary, switches it to debug level.
package cli
