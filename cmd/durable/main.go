// Command durable starts durable workflows, resumes their callbacks and runs
// a local engine emulator.
package main

import (
	"os"
)

func main() {
	if err := newCLI().command().Execute(); err != nil {
		os.Exit(1)
	}
}
