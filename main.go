package main

import (
	"os"

	"github.com/tom2552tom/universal-ai-matching-system-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
