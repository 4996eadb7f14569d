package main

import (
	"os"

	"github.com/acasal/alertd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
