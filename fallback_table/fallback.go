// Package fallback holds keys that end exactly at a trie node boundary.
/*
Fallback File
──────────────────────────────────────────
| CBOR image (N) | xxhash64(image) (8) |
──────────────────────────────────────────

The whole table lives in memory and is rewritten atomically on Save:
the image goes to a uniquely named temp file which is renamed over the
old one.
*/
package fallback

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const formatVersion = 1

var ErrCorrupt = errors.New("fallback: corrupt table file")

type image struct {
	Version uint16           `cbor:"1,keyasint"`
	Entries map[string]int64 `cbor:"2,keyasint"`
}

type Table struct {
	path    string
	entries map[string]int64
	dirty   bool
	log     *zap.Logger
}

// Open loads the table at path, or starts an empty one if the file does not exist.
func Open(path string, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	t := &Table{path: path, entries: make(map[string]int64), log: log}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read fallback table %s", path)
	}
	if len(data) < 8 {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %d bytes", path, len(data))
	}
	body, sum := data[:len(data)-8], binary.LittleEndian.Uint64(data[len(data)-8:])
	if xxhash.Sum64(body) != sum {
		return nil, errors.Wrapf(ErrCorrupt, "%s: checksum mismatch", path)
	}
	var img image
	if err := cbor.Unmarshal(body, &img); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%s: %v", path, err)
	}
	if img.Version != formatVersion {
		return nil, errors.Wrapf(ErrCorrupt, "%s: version %d", path, img.Version)
	}
	if img.Entries != nil {
		t.entries = img.Entries
	}
	log.Debug("fallback table loaded", zap.String("path", path), zap.Int("entries", len(t.entries)))
	return t, nil
}

func (t *Table) Get(key string) (int64, bool) {
	v, ok := t.entries[key]
	return v, ok
}

// Insert adds key if absent and reports whether it did.
func (t *Table) Insert(key string, value int64) bool {
	if _, ok := t.entries[key]; ok {
		return false
	}
	t.entries[key] = value
	t.dirty = true
	return true
}

// Update replaces the value of an existing key and reports whether it existed.
func (t *Table) Update(key string, value int64) bool {
	old, ok := t.entries[key]
	if !ok {
		return false
	}
	if old != value {
		t.entries[key] = value
		t.dirty = true
	}
	return true
}

func (t *Table) Delete(key string) bool {
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	t.dirty = true
	return true
}

func (t *Table) Len() int { return len(t.entries) }

// Keys returns every key in ascending order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Table) Dirty() bool { return t.dirty }

// Save writes the table if it changed since the last Save or Open.
func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return errors.Wrap(err, "fallback: cbor mode")
	}
	body, err := em.Marshal(image{Version: formatVersion, Entries: t.entries})
	if err != nil {
		return errors.Wrap(err, "fallback: encode")
	}
	data := binary.LittleEndian.AppendUint64(body, xxhash.Sum64(body))

	tmp := filepath.Join(filepath.Dir(t.path), "."+filepath.Base(t.path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return errors.Wrapf(err, "create %s", tmp)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "write %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "close %s", tmp)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "rename %s", tmp)
	}

	t.dirty = false
	t.log.Debug("fallback table saved", zap.String("path", t.path), zap.Int("entries", len(t.entries)))
	return nil
}
