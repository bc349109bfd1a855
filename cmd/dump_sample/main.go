// dump_sample runs the seed into a fresh trie and dumps it, writing all
// output to cmd/sample_run_output.txt. Run from repo root: go run ./cmd/dump_sample
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"BTrieDB/btrie"
)

const (
	trieDir    = "data/sample"
	outputFile = "cmd/sample_run_output.txt"
	wordList   = "cmd/dump_sample/words.txt"
)

var words = []string{
	"apple", "app", "application", "apply", "apt", "aptitude",
	"banana", "band", "bandana", "bank", "banner",
	"can", "canal", "candle", "candy", "cane", "cat", "catalog",
}

func main() {
	outPath := outputFile
	// If run from cmd/dump_sample, output next to binary
	if _, err := os.Stat("cmd"); os.IsNotExist(err) {
		outPath = "sample_run_output.txt"
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	root := repoRoot()
	list := filepath.Join(root, wordList)
	if err := writeWords(list); err != nil {
		fmt.Fprintf(os.Stderr, "write word list: %v\n", err)
		os.Exit(1)
	}
	defer os.Remove(list)

	// Clean previous run so seed starts fresh
	dir := filepath.Join(root, trieDir)
	os.RemoveAll(dir)

	// 1) Run seed: capture stdout/stderr to file
	fmt.Fprintln(f, "========== SEED ==========")
	cmd := exec.Command("go", "run", "./cmd/seed", list, dir)
	cmd.Stdout = f
	cmd.Stderr = f
	cmd.Dir = root
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(f, "seed exited with error: %v\n", err)
	}

	// 2) Dump the trie and a few wildcard queries
	fmt.Fprintf(f, "\n========== INSPECT %s ==========\n", trieDir)
	if err := dump(f, dir); err != nil {
		fmt.Fprintf(f, "inspect error: %v\n", err)
	}

	fmt.Printf("Output written to %s\n", outPath)
}

func dump(f *os.File, dir string) error {
	tr, err := btrie.Open(dir, btrie.DefaultOptions())
	if err != nil {
		return err
	}
	defer tr.Close()

	if err := tr.Dump(f); err != nil {
		return err
	}
	for _, p := range []string{"ap*", "ban?", "*an*", "c?n*"} {
		matches, err := tr.FindRegExp(p)
		if err != nil {
			return err
		}
		fmt.Fprintf(f, "\nmatch %s:\n", p)
		for _, m := range matches {
			fmt.Fprintf(f, "  %q -> %d\n", m.Key, m.Addr)
		}
	}
	return nil
}

func writeWords(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	for i, w := range words {
		fmt.Fprintf(out, "%s %d\n", w, i)
	}
	return out.Close()
}

func repoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
