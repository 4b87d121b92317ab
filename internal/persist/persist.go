// Package persist loads and saves the clipboard history file.
//
// The file is a JSON array of objects, oldest entry first:
//
//	[
//	  {"Data": "hello", "Type": "text/plain"},
//	  {"Data": "iVBORw0KGgo...", "Type": "image/png", "Encoding": "base64",
//	   "Metadata": {"source": "laptop"}, "Time": "2026-01-02T15:04:05Z"}
//	]
//
// "Data" and "Type" are required; objects missing either are skipped. Data
// is the payload as a string unless "Encoding" is "base64". Loading never
// fails: a missing, unreadable or malformed file yields an empty history.
//
// When a key is supplied the whole file is sealed with internal/crypto.
package persist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
	"unicode/utf8"

	"go.klb.dev/cliphist/internal/crypto"
	"go.klb.dev/cliphist/internal/history"
)

const encodingBase64 = "base64"

// record is the on-disk shape of one entry, used when writing.
type record struct {
	Data     string            `json:"Data"`
	Type     string            `json:"Type"`
	Encoding string            `json:"Encoding,omitempty"`
	Metadata map[string]string `json:"Metadata,omitempty"`
	Time     *time.Time        `json:"Time,omitempty"`
}

// Load reads the history file at path and returns its entries in file
// order. key may be nil for a plain JSON file. Problems are logged, never
// returned.
func Load(path string, key *crypto.Key) []history.Entry {
	log := slog.With("path", path)

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("no history file")
		} else {
			log.Warn("history file unreadable", "err", err)
		}
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	if key != nil {
		opened, err := crypto.Open(raw, key)
		switch {
		case err == nil:
			raw = opened
		case isPlain(raw):
			// Sealing was switched on for an existing file. Keep its
			// entries; the next save seals them.
			log.Warn("history file is not sealed, reading it as plain JSON")
		default:
			log.Warn("failed to open sealed history file", "err", err)
			return nil
		}
	}

	entries, err := Parse(raw)
	if err != nil {
		log.Warn("failed to parse history file", "err", err)
		return nil
	}
	log.Info("history loaded", "entries", len(entries))
	return entries
}

// isPlain reports whether raw looks like an unsealed history document.
func isPlain(raw []byte) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte("["))
}

// Parse decodes a history document. It returns an error only when the
// document is not a JSON array; malformed elements are skipped.
func Parse(doc []byte) ([]history.Entry, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(doc, &elems); err != nil {
		return nil, fmt.Errorf("history document: %w", err)
	}

	out := make([]history.Entry, 0, len(elems))
	for i, elem := range elems {
		e, err := parseEntry(elem)
		if err != nil {
			slog.Debug("skipping history element", "index", i, "err", err)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func parseEntry(elem json.RawMessage) (history.Entry, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(elem, &obj); err != nil || obj == nil {
		return history.Entry{}, errors.New("not an object")
	}

	var data, mime string
	if err := requireString(obj, "Data", &data); err != nil {
		return history.Entry{}, err
	}
	if err := requireString(obj, "Type", &mime); err != nil {
		return history.Entry{}, err
	}

	payload := []byte(data)
	var encoding string
	if v, ok := obj["Encoding"]; ok {
		_ = json.Unmarshal(v, &encoding)
	}
	if encoding == encodingBase64 {
		b, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return history.Entry{}, fmt.Errorf("decode base64 payload: %w", err)
		}
		payload = b
	}

	e := history.Entry{Data: payload, MIME: mime}
	if v, ok := obj["Metadata"]; ok {
		var md map[string]string
		if err := json.Unmarshal(v, &md); err == nil && len(md) > 0 {
			e.Metadata = md
		}
	}
	if v, ok := obj["Time"]; ok {
		var ts time.Time
		if err := json.Unmarshal(v, &ts); err == nil {
			e.Time = ts
		}
	}
	return e, nil
}

func requireString(obj map[string]json.RawMessage, key string, dst *string) error {
	v, ok := obj[key]
	if !ok {
		return fmt.Errorf("missing %q", key)
	}
	if string(v) == "null" || json.Unmarshal(v, dst) != nil {
		return fmt.Errorf("%q is not a string", key)
	}
	return nil
}

// Apply adds entries to store in order, the way the clipboard would have
// delivered them. It returns the number of entries actually added.
func Apply(store *history.Store, entries []history.Entry) int {
	n := 0
	for _, e := range entries {
		if store.Add(e) {
			n++
		}
	}
	return n
}

// Encode renders entries (newest first, as returned by Store.Entries) as a
// history document, oldest first.
func Encode(entries []history.Entry) ([]byte, error) {
	recs := make([]record, 0, len(entries))
	for _, e := range slices.Backward(entries) {
		r := record{Type: e.MIME, Metadata: e.Metadata}
		if utf8.Valid(e.Data) {
			r.Data = string(e.Data)
		} else {
			r.Data = base64.StdEncoding.EncodeToString(e.Data)
			r.Encoding = encodingBase64
		}
		if !e.Time.IsZero() {
			ts := e.Time.UTC()
			r.Time = &ts
		}
		recs = append(recs, r)
	}
	return json.MarshalIndent(recs, "", "  ")
}

// Save writes entries (newest first) to path, replacing it atomically.
// key may be nil for a plain JSON file.
func Save(path string, entries []history.Entry, key *crypto.Key) error {
	doc, err := Encode(entries)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if key != nil {
		doc, err = crypto.Seal(doc, key)
		if err != nil {
			return fmt.Errorf("seal history: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".cliphist-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
