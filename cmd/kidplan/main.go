package main

import (
	"context"
	"os"

	appLog "kidplan/internal/log"
)

// Set by -ldflags at release time.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	root := NewRootCommand(version, commit, date)
	if err := root.ExecuteContext(context.Background()); err != nil {
		appLog.Error("kidplan failed", err)
		os.Exit(1)
	}
}
