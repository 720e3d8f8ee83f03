package main

import (
	"os"

	"github.com/hrcal/hrcal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
