package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"mexc-trader/internal/cli"
	"mexc-trader/internal/config"
	"mexc-trader/internal/logging"
)

func main() {
	// Optional .env for credentials; missing file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(configDirFromArgs(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd := cli.NewRootCmd(cfg, logger)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// configDirFromArgs extracts the --config flag before cobra parsing, since
// configuration must be loaded to build the command tree.
func configDirFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if len(arg) > len("--config=") && arg[:len("--config=")] == "--config=" {
			return arg[len("--config="):]
		}
	}
	return ""
}
