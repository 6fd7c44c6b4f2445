// badgebind fills HTML badge templates with values from a YAML or JSON
// data document.
package main

import (
	"os"

	"github.com/dgallion1/badgebind/cmd/badgebind/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
