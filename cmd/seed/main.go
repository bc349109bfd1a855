// Seed program: bulk loads a word list into a trie directory.
// Run: go run ./cmd/seed [words.txt] [trie-dir]
// Each line is "word" or "word addr"; without an addr the line number is used.
// With no word list a generated sample of lowercase words is loaded.
// Then inspect: go run ./cmd/inspect_trie data/words
package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"BTrieDB/btrie"
	"BTrieDB/logger"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const (
	defaultDir  = "data/words"
	sampleWords = 50000
)

func main() {
	dir := defaultDir
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	zl, err := logger.New(logger.LevelFromEnv("BTRIE_LOG", "warn"))
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	var src io.Reader
	if len(os.Args) > 1 && os.Args[1] != "-" {
		f, err := os.Open(os.Args[1])
		if err != nil {
			zl.Fatal("open word list", zap.String("path", os.Args[1]), zap.Error(err))
		}
		defer f.Close()
		src = f
	} else {
		src = strings.NewReader(sample(sampleWords))
	}

	opts := btrie.DefaultOptions()
	opts.Logger = zl
	tr, err := btrie.Open(dir, opts)
	if err != nil {
		zl.Fatal("open trie", zap.String("dir", dir), zap.Error(err))
	}

	start := time.Now()
	added, skipped, err := seed(tr, src, zl)
	if err != nil {
		tr.Close()
		zl.Fatal("seed", zap.Error(err))
	}
	if err := tr.Close(); err != nil {
		zl.Fatal("close trie", zap.Error(err))
	}

	took := time.Since(start)
	fmt.Printf("Loaded %s words into %s in %s (%s skipped, %s words/s)\n",
		humanize.Comma(int64(added)), dir, took.Round(time.Millisecond),
		humanize.Comma(int64(skipped)), humanize.Comma(int64(float64(added)/took.Seconds())))
	fmt.Println("Inspect with: go run ./cmd/inspect_trie", dir)
}

// seed inserts every line of r. Lines the trie rejects are logged and skipped.
func seed(tr *btrie.BTrie, r io.Reader, log *zap.Logger) (added, skipped int, err error) {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		word, addr := strings.ToLower(fields[0]), int64(line)
		if len(fields) > 1 {
			if addr, err = strconv.ParseInt(fields[1], 10, 64); err != nil {
				return added, skipped, errors.Wrapf(err, "line %d", line)
			}
		}

		ok, err := tr.Insert(word, addr)
		switch {
		case errors.IsAny(err, btrie.ErrInvalidKey, btrie.ErrKeyTooLong, btrie.ErrInvalidAddress):
			log.Debug("skipping word", zap.Int("line", line), zap.String("word", word), zap.Error(err))
			skipped++
		case err != nil:
			return added, skipped, errors.Wrapf(err, "line %d", line)
		case !ok:
			skipped++
		default:
			added++
		}
	}
	return added, skipped, errors.Wrap(scanner.Err(), "read word list")
}

// sample generates n pseudo-random words with a skewed letter distribution
// so common prefixes are shared the way natural words share them.
func sample(n int) string {
	const letters = "eeeeettttaaaooiinnsshrdlcumwfgypbvkjxqz"
	r := rand.New(rand.NewSource(1))
	var sb strings.Builder
	for i := 0; i < n; i++ {
		l := 2 + r.Intn(9)
		for j := 0; j < l; j++ {
			sb.WriteByte(letters[r.Intn(len(letters))])
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
