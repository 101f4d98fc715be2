package docstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

type testDoc struct {
	Meta
	Items []string `json:"items"`
}

func (d *testDoc) DocumentMeta() *Meta {
	return &d.Meta
}

func (d *testDoc) resetFn() func() {
	return func() {
		*d = testDoc{Items: []string{}}
	}
}

func newTestFile(t *testing.T) *File {
	t.Helper()
	return NewFile(filepath.Join(t.TempDir(), "state", "doc.json"), "1.0", zap.NewNop())
}

func TestLoadMissingInitializes(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)

	doc := &testDoc{}
	if outcome := f.Load(doc, doc.resetFn()); outcome != Initialized {
		t.Fatalf("expected Initialized, got %s", outcome)
	}
	if doc.Version != "1.0" {
		t.Fatalf("expected version stamped, got %q", doc.Version)
	}
	if doc.Revision != 0 {
		t.Fatalf("expected revision 0, got %d", doc.Revision)
	}
	if doc.Items == nil {
		t.Fatalf("expected defaults applied")
	}
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)

	doc := &testDoc{}
	f.Load(doc, doc.resetFn())
	doc.Items = append(doc.Items, "first")

	if err := f.Save(doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if doc.Revision != 1 {
		t.Fatalf("expected revision 1 after save, got %d", doc.Revision)
	}

	reloaded := &testDoc{}
	if outcome := f.Load(reloaded, reloaded.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded, got %s", outcome)
	}
	if len(reloaded.Items) != 1 || reloaded.Items[0] != "first" {
		t.Fatalf("unexpected items: %+v", reloaded.Items)
	}
	if reloaded.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", reloaded.Revision)
	}

	// No temp file should survive a successful save.
	if _, err := os.Stat(f.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, stat err: %v", err)
	}
}

func TestSaveBumpsRevision(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)

	doc := &testDoc{}
	f.Load(doc, doc.resetFn())
	for want := uint64(1); want <= 3; want++ {
		if err := f.Save(doc); err != nil {
			t.Fatalf("save %d: %v", want, err)
		}
		if doc.Revision != want {
			t.Fatalf("expected revision %d, got %d", want, doc.Revision)
		}
	}
}

func TestSaveSyncsBeforeRename(t *testing.T) {
	f := newTestFile(t)

	doc := &testDoc{}
	f.Load(doc, doc.resetFn())
	doc.Items = append(doc.Items, "first")
	if err := f.Save(doc); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	originalSync := syncFile
	defer func() { syncFile = originalSync }()

	synced := 0
	syncFile = func(file *os.File) error {
		synced++
		// The previous document must still be live while the
		// replacement is being flushed.
		data, err := os.ReadFile(f.Path())
		if err != nil {
			t.Errorf("read live document during flush: %v", err)
		} else if got := revisionIn(data); got != 1 {
			t.Errorf("live document already at revision %d during flush", got)
		}
		return originalSync(file)
	}

	doc.Items = append(doc.Items, "second")
	if err := f.Save(doc); err != nil {
		t.Fatalf("second save: %v", err)
	}
	if synced != 1 {
		t.Fatalf("expected one flush per save, got %d", synced)
	}

	reloaded := &testDoc{}
	if outcome := f.Load(reloaded, reloaded.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded, got %s", outcome)
	}
	if len(reloaded.Items) != 2 || reloaded.Revision != 2 {
		t.Fatalf("unexpected reloaded document: %+v", reloaded)
	}
}

func TestSaveSyncFailureKeepsDocument(t *testing.T) {
	f := newTestFile(t)

	doc := &testDoc{}
	f.Load(doc, doc.resetFn())
	doc.Items = append(doc.Items, "first")
	if err := f.Save(doc); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	originalSync := syncFile
	syncFile = func(*os.File) error { return errors.New("device gone") }
	defer func() { syncFile = originalSync }()

	doc.Items = append(doc.Items, "second")
	if err := f.Save(doc); err == nil {
		t.Fatalf("expected save to fail when the flush fails")
	}
	if doc.Revision != 1 {
		t.Fatalf("expected revision unchanged after failed save, got %d", doc.Revision)
	}
	if _, err := os.Stat(f.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("expected temp file removed, stat err: %v", err)
	}

	syncFile = originalSync

	// The document on disk still holds the last flushed state.
	reloaded := &testDoc{}
	if outcome := f.Load(reloaded, reloaded.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded, got %s", outcome)
	}
	if len(reloaded.Items) != 1 || reloaded.Items[0] != "first" {
		t.Fatalf("unexpected items: %+v", reloaded.Items)
	}
	if reloaded.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", reloaded.Revision)
	}
}

func TestLoadCorruptRecovers(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(f.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc := &testDoc{}
	if outcome := f.Load(doc, doc.resetFn()); outcome != Recovered {
		t.Fatalf("expected Recovered, got %s", outcome)
	}
	if len(doc.Items) != 0 {
		t.Fatalf("expected defaults, got %+v", doc.Items)
	}

	// The fresh document replaces the corrupt file.
	if err := f.Save(doc); err != nil {
		t.Fatalf("save after recovery: %v", err)
	}
	reloaded := &testDoc{}
	if outcome := f.Load(reloaded, reloaded.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded after rewrite, got %s", outcome)
	}
}

func TestLoadUnsupportedVersionRecovers(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := []byte(`{"version": "9.9", "revision": 3, "items": ["old"]}`)
	if err := os.WriteFile(f.Path(), stale, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc := &testDoc{}
	if outcome := f.Load(doc, doc.resetFn()); outcome != Recovered {
		t.Fatalf("expected Recovered, got %s", outcome)
	}
	if len(doc.Items) != 0 {
		t.Fatalf("expected stale content discarded, got %+v", doc.Items)
	}

	// Save must replace the stale document, not conflict with it.
	if err := f.Save(doc); err != nil {
		t.Fatalf("save after version recovery: %v", err)
	}

	raw, err := os.ReadFile(f.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var onDisk testDoc
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if onDisk.Version != "1.0" || onDisk.Revision != 4 {
		t.Fatalf("expected restamped document, got version %q revision %d", onDisk.Version, onDisk.Revision)
	}
}

func TestLoadLegacyDocumentStampsVersion(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)
	if err := os.MkdirAll(filepath.Dir(f.Path()), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	legacy := []byte(`{"items": ["kept"]}`)
	if err := os.WriteFile(f.Path(), legacy, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	doc := &testDoc{}
	if outcome := f.Load(doc, doc.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded, got %s", outcome)
	}
	if doc.Version != "1.0" {
		t.Fatalf("expected version stamped, got %q", doc.Version)
	}
	if len(doc.Items) != 1 || doc.Items[0] != "kept" {
		t.Fatalf("expected legacy content kept, got %+v", doc.Items)
	}
}

func TestSaveConflict(t *testing.T) {
	t.Parallel()

	f := newTestFile(t)

	first := &testDoc{}
	f.Load(first, first.resetFn())
	if err := f.Save(first); err != nil {
		t.Fatalf("initial save: %v", err)
	}

	second := &testDoc{}
	f.Load(second, second.resetFn())

	// Both hold revision 1; the second writer wins the race.
	second.Items = append(second.Items, "second")
	if err := f.Save(second); err != nil {
		t.Fatalf("second save: %v", err)
	}

	first.Items = append(first.Items, "first")
	err := f.Save(first)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if first.Revision != 1 {
		t.Fatalf("expected revision unchanged after conflict, got %d", first.Revision)
	}

	// Reload and retry resolves the conflict.
	retry := &testDoc{}
	if outcome := f.Load(retry, retry.resetFn()); outcome != Loaded {
		t.Fatalf("expected Loaded, got %s", outcome)
	}
	retry.Items = append(retry.Items, "first")
	if err := f.Save(retry); err != nil {
		t.Fatalf("retry save: %v", err)
	}
	if retry.Revision != 3 {
		t.Fatalf("expected revision 3, got %d", retry.Revision)
	}
}
