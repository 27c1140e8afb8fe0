package main

import (
	"os"

	"buswatch.io/buswatch/cmd/buswatch-hub/app"
)

func main() {
	if err := app.NewHubCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
