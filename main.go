package main

import (
	"os"

	"github.com/mhoffs/syncdecl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
