package main

import (
	"fmt"
	"os"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
	ExitMissingInput = 3
	ExitConfigError  = 4
	ExitStorageError = 5
	ExitJobFailed    = 6
	ExitTimeout      = 7
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return ExitInvalidArgs
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "catalina":
		return runCatalina(cmdArgs)
	case "universe":
		return runUniverse(cmdArgs)
	case "scaners":
		return runScaners(cmdArgs)
	case "fetch":
		return runFetch(cmdArgs)
	case "list":
		return runList(cmdArgs)
	case "delete":
		return runDelete(cmdArgs)
	case "help", "-h", "--help":
		printUsage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		return ExitInvalidArgs
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: downlog <command> [options]

Commands:
  catalina  Build catalina log archives for a date on every node and save them
  universe  Build universe log archives for a date on every node and save them
  scaners   Build the archive for one scan on the scan node and save it
  fetch     Post a JSON body to any endpoint on selected nodes and save the archives
  list      List saved archives, optionally verifying that each is a readable ZIP
  delete    Remove a saved archive

Run 'downlog <command> -h' for command-specific help.`)
}
