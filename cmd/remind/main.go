package main

import (
	"os"

	"github.com/tbourn/go-remind-backend/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
