// Package docstore persists whole-document JSON state files. Documents
// are read and written in full, replaced atomically, and carry a
// revision counter so concurrent writers cannot silently overwrite
// each other.
package docstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrConflict is returned by Save when the document on disk is no
// longer the revision the caller loaded.
var ErrConflict = errors.New("state document modified since load")

// Outcome reports how a Load call was satisfied.
type Outcome int

const (
	// Loaded means a prior document was read from disk.
	Loaded Outcome = iota
	// Initialized means no document existed yet and defaults were used.
	Initialized
	// Recovered means the on-disk document was unreadable or carried an
	// unsupported version, and defaults were used in its place.
	Recovered
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case Initialized:
		return "initialized"
	case Recovered:
		return "recovered"
	default:
		return "unknown"
	}
}

// Meta is embedded by every persisted document.
type Meta struct {
	Version  string `json:"version"`
	Revision uint64 `json:"revision,omitempty"`
}

// Document is any persisted state document.
type Document interface {
	DocumentMeta() *Meta
}

// File is a JSON document store bound to a single path.
type File struct {
	path    string
	version string
	logger  *zap.Logger
}

func NewFile(path, version string, logger *zap.Logger) *File {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &File{
		path:    path,
		version: version,
		logger:  logger,
	}
}

func (f *File) Path() string {
	return f.path
}

// Load fills doc from disk. It never fails: a missing document is
// initialized through reset, and an unreadable or unsupported one is
// replaced the same way, so a single bad file cannot stop learning.
// Documents written before versioning are stamped with the current
// version on load.
func (f *File) Load(doc Document, reset func()) Outcome {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.reset(doc, reset, 0)
			return Initialized
		}
		f.logger.Warn("state document unreadable, starting fresh",
			zap.String("path", f.path), zap.Error(err))
		f.reset(doc, reset, 0)
		return Recovered
	}

	if err := json.Unmarshal(data, doc); err != nil {
		f.logger.Warn("state document corrupt, starting fresh",
			zap.String("path", f.path), zap.Error(err))
		f.reset(doc, reset, revisionIn(data))
		return Recovered
	}

	meta := doc.DocumentMeta()
	switch meta.Version {
	case f.version:
	case "":
		meta.Version = f.version
	default:
		f.logger.Warn("state document version unsupported, starting fresh",
			zap.String("path", f.path), zap.String("version", meta.Version))
		f.reset(doc, reset, revisionIn(data))
		return Recovered
	}

	return Loaded
}

var syncFile = (*os.File).Sync

// Save writes doc atomically, flushing a temp file to disk before
// renaming it into place, and bumps the revision. ErrConflict means
// another writer got there first; reload and repeat the mutation to
// resolve.
func (f *File) Save(doc Document) (err error) {
	meta := doc.DocumentMeta()

	if data, readErr := os.ReadFile(f.path); readErr == nil {
		if onDisk := revisionIn(data); onDisk != meta.Revision {
			return fmt.Errorf("%w: %s is at revision %d, expected %d",
				ErrConflict, f.path, onDisk, meta.Revision)
		}
	}

	meta.Version = f.version
	meta.Revision++
	defer func() {
		if err != nil {
			meta.Revision--
		}
	}()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state document: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	tmpPath := f.path + ".tmp"
	if err := writeFileSynced(tmpPath, data); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write state document: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace state document: %w", err)
	}

	return nil
}

// writeFileSynced is os.WriteFile with a sync barrier: the bytes must
// be on stable storage before the rename publishes them, or a crash
// can leave an empty document behind a completed rename.
func writeFileSynced(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	_, err = file.Write(data)
	if err == nil {
		err = syncFile(file)
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// reset reinstates defaults and carries over the on-disk revision so a
// later Save replaces exactly the document this load observed.
func (f *File) reset(doc Document, reset func(), revision uint64) {
	reset()
	meta := doc.DocumentMeta()
	meta.Version = f.version
	meta.Revision = revision
}

// revisionIn reads just the revision field out of raw document bytes,
// tolerating documents the full type can no longer parse.
func revisionIn(data []byte) uint64 {
	var header struct {
		Revision uint64 `json:"revision"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return 0
	}
	return header.Revision
}
