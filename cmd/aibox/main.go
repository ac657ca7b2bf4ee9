// Command aibox sends CSV and XLSX files to the remote cleaning service,
// either from a local web UI (serve) or from the command line (clean).
package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes.
const (
	exitOK            = 0
	exitFailure       = 1
	exitMisconfigured = 2
)

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	root := newRootCommand()
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitFailure
}
