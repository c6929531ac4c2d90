package main

import (
	"os"

	"github.com/pollrush/pollrush-wallet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
