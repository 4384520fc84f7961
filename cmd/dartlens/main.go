package main

import (
	"os"

	"github.com/wonny/dartlens/backend/cmd/dartlens/commands"
)

// main is the entry point for the dartlens CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/dartlens [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
