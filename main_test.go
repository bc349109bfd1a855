package main

import (
	"strings"
	"testing"

	"BTrieDB/btrie"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	tr, err := btrie.Open(t.TempDir(), btrie.Options{BucketSize: 128})
	require.NoError(t, err)
	defer tr.Close()

	run := func(line string) string {
		var sb strings.Builder
		require.NoError(t, execute(tr, line, &sb), line)
		return sb.String()
	}

	assert.Equal(t, "ok\n", run("insert cat 1"))
	assert.Equal(t, "ok\n", run("insert car 2"))
	assert.Equal(t, "\"cat\" already present\n", run("insert cat 5"))
	assert.Equal(t, "\"cat\" -> 1\n", run("find cat"))
	assert.Equal(t, "ok\n", run("update cat 3"))
	assert.Equal(t, "\"cat\" -> 3\n", run("find cat"))
	assert.Equal(t, "\"car\" -> 2\n\"cat\" -> 3\n(2 matches)\n", run("match ca?"))
	assert.Equal(t, "2\n", run("len"))
	assert.Equal(t, "\"car\" -> 2\n", run("walk 1"))
	assert.Equal(t, "ok\n", run("delete car"))
	assert.Equal(t, "\"car\" not found\n", run("find car"))
	assert.Equal(t, "\"car1\" not found\n", run("find car1"))
	assert.Equal(t, "ok\n", run("flush"))
	assert.Contains(t, run("stats"), "node cache")

	var sb strings.Builder
	assert.Error(t, execute(tr, "insert cat", &sb))
	assert.Error(t, execute(tr, "insert dog x", &sb))
	assert.Error(t, execute(tr, "frobnicate", &sb))
}
