package main

import (
	"os"

	"webattack-detector/go-service/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
