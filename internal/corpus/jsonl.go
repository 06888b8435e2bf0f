// Package corpus provides line-delimited JSON persistence for the durable
// stage outputs. Every pipeline stage consumes the previous stage's file
// output, never an in-memory handoff, so each stage is independently
// re-runnable.
package corpus

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// maxLineBytes bounds a single JSONL record. Narratives are short but raw
// classifier responses can be verbose.
const maxLineBytes = 4 * 1024 * 1024

// ReadFile decodes every line of a JSONL file into T. Blank lines are
// skipped; a malformed line is an error, not a silent drop.
func ReadFile[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "corpus: open %s", path)
	}
	defer f.Close()

	var items []T
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(raw) == 0 {
			continue
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, eris.Wrapf(err, "corpus: decode %s:%d", filepath.Base(path), line)
		}
		items = append(items, item)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "corpus: scan %s", path)
	}
	return items, nil
}

// WriteFile encodes items as JSONL and atomically replaces path: the file
// is written to a temp sibling and renamed into place, so readers never
// observe a half-written output.
func WriteFile[T any](path string, items []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "corpus: mkdir for %s", path)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "corpus: create temp for %s", path)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			tmp.Close()
			return eris.Wrapf(err, "corpus: encode record for %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "corpus: flush %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return eris.Wrapf(err, "corpus: sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "corpus: close temp for %s", path)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "corpus: rename into %s", path)
	}
	return nil
}

// Exists reports whether path exists as a regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
