// main is the entrypoint of the pipeline CLI.
package main

import (
	"fmt"
	"os"

	"github.com/ctran-hive/pipeline/cmd"
	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s %v\n", contract.ErrorColor.Sprint("Error:"), err)
		hive.CloseStores()
		if core.IsFatal(err) {
			os.Exit(contract.FatalExitCode)
		}
		os.Exit(1)
	}
	hive.CloseStores()
}
