// Command filterctl parses, merges, compiles and validates with the
// filter subsystem from the command line.
package main

import (
	"os"
)

func main() {
	os.Exit(Execute())
}
