/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"github.com/joho/godotenv"

	"github.com/tieubaoca/policy-assistant/cmd"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	cmd.Execute()
}
