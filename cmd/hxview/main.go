package main

import (
	"fmt"
	"os"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		if err := runServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "push":
		if err := runPush(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "listen":
		if err := runListen(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("hxview version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hxview - server-composed views with hydration and hot reload

Usage:
  hxview <command> [arguments]

Commands:
  serve [--config file]            Serve the configured pages and hot stream
  push [options] [scripts]         Publish a hot update to a running server
  listen [options] [url]           Print hot events from a running server
  version                          Print version
  help                             Show this help

Options for push and listen:
  --config, -c file                Read addr, hot.path and hot.channel from a config file
  --url URL                        Hot stream URL (default from config, http://localhost:3000/_hot)
  --channel name                   Channel to use (default from config, hot)
  --reload                         push only: ask clients for a full reload

Examples:
  hxview serve --config hxview.toml
  hxview push /views/card.js /views/list.js
  hxview push --reload
  hxview listen http://localhost:3000/_hot`)
}

// flagValue returns the value following the flag at args[i].
func flagValue(args []string, i int, name string) (string, error) {
	if i+1 >= len(args) {
		return "", fmt.Errorf("%s requires a value", name)
	}
	return args[i+1], nil
}
