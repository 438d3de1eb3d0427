package main

import (
	"github.com/joho/godotenv"

	"kidep/internal/cli"
)

func main() {
	// A .env in the working directory may set KIDEP_TOOLS_DIR and friends.
	_ = godotenv.Load()
	cli.Execute()
}
