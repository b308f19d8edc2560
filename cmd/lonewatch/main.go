package main

import (
	"os"

	"github.com/bnema/lonewatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
