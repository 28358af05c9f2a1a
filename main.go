package main

import (
	"os"

	"github.com/Shin-ichiroh/Manuscript-review/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
