// Command fitnessctl works on the same data directory as the API server:
// it registers users, checks logins, prints the saved dashboard and runs the
// classification rules from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
