package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/AntonyPalsh/downlog/internal/archive"
	"github.com/AntonyPalsh/downlog/internal/progress"
)

// runList prints the saved archives. With -verify each archive is read back
// and checked to be a ZIP whose entries decompress cleanly.
func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)

	prefix := fs.String("prefix", "", "Only list archives whose name starts with this prefix")
	verify := fs.Bool("verify", false, "Check that every archive is a readable ZIP")
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: downlog list [options]

List saved archives with their sizes. Use -verify to read every archive
back and check it is a valid ZIP.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	ctx, cancel := signalContext()
	defer cancel()

	store, code := openStore(ctx, common)
	if store == nil {
		return code
	}
	defer store.Close()

	infos, err := store.List(ctx, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitStorageError
	}

	invalid := 0
	for _, info := range infos {
		line := fmt.Sprintf("%s\t%s\t%s", info.Key, progress.FormatBytes(info.Size), info.ModTime.Format("2006-01-02 15:04:05"))
		if *verify {
			entries, err := store.Verify(ctx, info.Key)
			if err != nil {
				invalid++
				line += "\tINVALID: " + err.Error()
			} else {
				line += fmt.Sprintf("\tOK (%d entries)", entries)
			}
		}
		fmt.Println(line)
	}

	fmt.Fprintf(os.Stderr, "[downlog] %d archive(s)\n", len(infos))
	if invalid > 0 {
		fmt.Fprintf(os.Stderr, "[downlog] %d invalid archive(s)\n", invalid)
		return ExitStorageError
	}
	return ExitSuccess
}

// openStore opens the configured output for the maintenance commands.
func openStore(ctx context.Context, common *commonFlags) (*archive.Store, int) {
	cfg, err := common.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return nil, ExitConfigError
	}

	store, err := archive.Open(ctx, cfg.Output, cfg.MaxArchiveSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return nil, ExitStorageError
	}
	return store, ExitSuccess
}
