package main

import (
	"log/slog"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Error executing command", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
