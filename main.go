package main

import (
	"os"

	"github.com/sayoon01/ald-nl2sql-stats/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
