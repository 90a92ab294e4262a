package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/AntonyPalsh/downlog/internal/archive"
)

// runDelete removes a saved archive. It asks for confirmation unless -force
// is given.
func runDelete(args []string) int {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)

	name := fs.String("name", "", "Archive name, as printed by list (required)")
	force := fs.Bool("force", false, "Skip confirmation prompt")
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: downlog delete [options]

Remove a saved archive.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	if *name == "" {
		fmt.Fprintln(os.Stderr, "Error: -name is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	if !*force {
		fmt.Printf("Delete archive %s? [y/N]: ", *name)
		reader := bufio.NewReader(os.Stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(os.Stderr, "Cancelled")
			return ExitSuccess
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, code := openStore(ctx, common)
	if store == nil {
		return code
	}
	defer store.Close()

	if err := store.Delete(ctx, *name); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: archive %s does not exist\n", *name)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return ExitStorageError
	}

	fmt.Fprintf(os.Stderr, "[downlog] Deleted: %s\n", *name)
	return ExitSuccess
}
