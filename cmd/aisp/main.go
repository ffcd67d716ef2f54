// aisp validates and proves AISP documents.
//
// Usage:
//
//	aisp validate <path…>            full validation, exit 1 when any document is invalid
//	aisp tier <path…>                quality tier from density alone
//	aisp density <path…>             density and ambiguity metrics
//	aisp debug <path>                tokens, AST, dependency graph and fingerprints
//	aisp batch <glob…> [--expect f]  parallel validation with optional regression file
//	aisp watch <dir>                 revalidate on change
//	aisp serve                       gRPC service plus /metrics
//	aisp cache stats|list|purge      inspect the certificate store
//	aisp history <path>              past runs of a document
//
// Exit status is 0 when every document is valid, 1 when one is not and 2
// on any other error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

const (
	exitValid   = 0
	exitInvalid = 1
	exitError   = 2
)

// errInvalid is returned by commands that ran to completion but found an
// invalid document.
var errInvalid = errors.New("invalid document")

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

func execute(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return exitValid
	case errors.Is(err, errInvalid):
		return exitInvalid
	}
	fmt.Fprintln(stderr, "error:", err)
	return exitError
}
