// Command lookalike ranks the reference gallery against probe photos from the
// command line and loads reference data into Postgres.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}
