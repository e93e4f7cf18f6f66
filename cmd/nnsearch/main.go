// nnsearch ranks catalog names for free-text queries and measures learned
// scorers against recorded search observations.
package main

import (
	"os"

	"github.com/mommothazaz123/avrae-search-nn/cmd/nnsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
