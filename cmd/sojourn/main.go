package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
)

// version is stamped by the release build.
var version = "dev"

func main() {
	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		os.Exit(1)
	}
}
