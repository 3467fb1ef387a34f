// Package profile implements the line-oriented key/value credential
// record: a small text file format a ProfileStore reads and rewrites in
// place, preserving comments and line order.
package profile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrKeyNotFound is returned by Get when no line matches key.
var ErrKeyNotFound = errors.New("profile: key not found")

// Store is a text key/value record backed by a file on disk. Every Get
// re-scans the file from the start; every Set rewrites the whole file to
// a temp file and renames it into place, so concurrent external edits are
// always picked up and a crash mid-write never corrupts the original.
type Store struct {
	path string
}

// Open returns a Store bound to path. The file is not required to exist
// yet: Get returns ErrKeyNotFound and Set creates it on first write.
func Open(path string) *Store {
	return &Store{path: path}
}

// Get scans the file linearly and returns the first value for key,
// trimmed of surrounding whitespace.
func (s *Store) Get(key string) (string, error) {
	lines, err := s.readLines()
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("profile: %w", err)
	}
	for _, l := range lines {
		k, v, ok := parseKV(l)
		if ok && k == key {
			return v, nil
		}
	}
	return "", ErrKeyNotFound
}

// Set replaces the first line matching key with "key: value", appending
// it at the end if the key is absent, and rewrites the file atomically.
// Comment lines and any line this store doesn't recognize as a key/value
// pair are carried through unchanged and in order.
func (s *Store) Set(key, value string) error {
	lines, err := s.readLines()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("profile: %w", err)
	}
	found := false
	for i, l := range lines {
		k, _, ok := parseKV(l)
		if ok && k == key {
			lines[i] = key + ": " + value
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, key+": "+value)
	}
	return s.writeLines(lines)
}

func (s *Store) readLines() ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Store) writeLines(lines []string) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".profile-*.tmp")
	if err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	tmpPath := tmp.Name()

	var buf bytes.Buffer
	for _, l := range lines {
		buf.WriteString(l)
		buf.WriteByte('\n')
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("profile: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("profile: %w", err)
	}
	return nil
}

// parseKV recognizes a "<key>\s*:\s*<value>" line. Lines starting with #
// (after leading whitespace) are comments, never matched as key/value.
func parseKV(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(line[:i])
	value = strings.TrimSpace(line[i+1:])
	if key == "" {
		return "", "", false
	}
	return key, value, true
}
