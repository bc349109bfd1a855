// Inspect a trie directory: structure, fallback keys and statistics.
// Usage: go run ./cmd/inspect_trie <trie-dir> [options.yaml]
// Example: go run ./cmd/inspect_trie data/words
package main

import (
	"fmt"
	"os"

	"BTrieDB/btrie"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <trie-dir> [options.yaml]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Example: %s data/words\n", os.Args[0])
		os.Exit(1)
	}
	if err := inspect(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func inspect(args []string) error {
	opts := btrie.DefaultOptions()
	if len(args) > 1 {
		var err error
		if opts, err = btrie.LoadOptions(args[1]); err != nil {
			return err
		}
	}
	if _, err := os.Stat(args[0]); err != nil {
		return err
	}
	tr, err := btrie.Open(args[0], opts)
	if err != nil {
		return err
	}
	defer tr.Close()

	if err := tr.Dump(os.Stdout); err != nil {
		return err
	}
	st, err := tr.Stats()
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Print(st)
	return nil
}
