// btriedb is an interactive shell over one trie directory.
// Usage: go run . [dir] [options.yaml]
// Set BTRIE_LOG=debug to watch cache misses, evictions and splits.
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"BTrieDB/btrie"
	"BTrieDB/logger"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const defaultDir = "data/trie"

const help = `commands:
  insert <key> <addr>    add a key
  find <key>             look a key up
  update <key> <addr>    change an address (addr -1 deletes)
  delete <key>           remove a key
  match <pattern>        list keys matching a '*'/'?' pattern
  walk [n]               list the first n keys in order (default 20)
  len                    count keys
  stats                  cache and file statistics
  dump                   print the trie structure
  load                   warm the caches
  flush                  write everything to disk
  exit`

func main() {
	dir := defaultDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}
	zl, err := logger.New(logger.LevelFromEnv("BTRIE_LOG", "warn"))
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	opts := btrie.DefaultOptions()
	if len(os.Args) > 2 {
		if opts, err = btrie.LoadOptions(os.Args[2]); err != nil {
			zl.Fatal("load options", zap.String("path", os.Args[2]), zap.Error(err))
		}
	}
	opts.Logger = zl

	tr, err := btrie.Open(dir, opts)
	if err != nil {
		zl.Fatal("open trie", zap.String("dir", dir), zap.Error(err))
	}
	defer func() {
		if err := tr.Close(); err != nil {
			zl.Error("close trie", zap.Error(err))
		}
	}()

	fmt.Printf("trie %s (type help for commands)\n", dir)
	scanner := bufio.NewScanner(os.Stdin)
	// REPL
	for {
		fmt.Print("btrie> ")

		if !scanner.Scan() { // Ctrl+D pressed
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if strings.EqualFold(line, "exit") {
			break
		}
		if line == "" {
			continue
		}
		if err := execute(tr, line, os.Stdout); err != nil {
			fmt.Printf("Error: %v\n", err)
		}
	}
}

// execute runs one shell command against tr.
func execute(tr *btrie.BTrie, line string, w io.Writer) error {
	fields := strings.Fields(line)
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	need := func(n int) error {
		if len(args) != n {
			return errors.Newf("%s takes %d argument(s), got %d", cmd, n, len(args))
		}
		return nil
	}

	switch cmd {
	case "help":
		fmt.Fprintln(w, help)

	case "insert", "update":
		if err := need(2); err != nil {
			return err
		}
		addr, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return errors.Wrapf(err, "bad address %q", args[1])
		}
		var ok bool
		if cmd == "insert" {
			ok, err = tr.Insert(args[0], addr)
		} else {
			ok, err = tr.Update(args[0], addr)
		}
		if err != nil {
			return err
		}
		switch {
		case ok:
			fmt.Fprintln(w, "ok")
		case cmd == "insert":
			fmt.Fprintf(w, "%q already present\n", args[0])
		default:
			fmt.Fprintf(w, "%q not found\n", args[0])
		}

	case "find":
		if err := need(1); err != nil {
			return err
		}
		addr, err := tr.Find(args[0])
		if errors.Is(err, btrie.ErrNotFound) {
			fmt.Fprintf(w, "%q not found\n", args[0])
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%q -> %d\n", args[0], addr)

	case "delete", "del":
		if err := need(1); err != nil {
			return err
		}
		ok, err := tr.Delete(args[0])
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintf(w, "%q not found\n", args[0])
			return nil
		}
		fmt.Fprintln(w, "ok")

	case "match":
		if err := need(1); err != nil {
			return err
		}
		matches, err := tr.FindRegExp(args[0])
		if err != nil {
			return err
		}
		for _, m := range matches {
			fmt.Fprintf(w, "%q -> %d\n", m.Key, m.Addr)
		}
		fmt.Fprintf(w, "(%d matches)\n", len(matches))

	case "walk":
		limit := 20
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return errors.Newf("bad limit %q", args[0])
			}
			limit = n
		}
		seen := 0
		err := tr.Walk(func(key string, addr int64) bool {
			fmt.Fprintf(w, "%q -> %d\n", key, addr)
			seen++
			return seen < limit
		})
		if err != nil {
			return err
		}

	case "len":
		n, err := tr.Len()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, n)

	case "stats":
		st, err := tr.Stats()
		if err != nil {
			return err
		}
		fmt.Fprint(w, st)

	case "dump":
		return tr.Dump(w)

	case "load":
		if err := tr.Load(); err != nil {
			return err
		}
		fmt.Fprintln(w, "ok")

	case "flush":
		if err := tr.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w, "ok")

	default:
		return errors.Newf("unknown command %q (type help)", cmd)
	}
	return nil
}
