package assets

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirRead(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "packs", "spring"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "packs", "spring", "cat.webp")
	if err := os.WriteFile(path, []byte("webpbytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDir(root)
	data, err := d.Read("packs/spring/cat.webp")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "webpbytes" {
		t.Errorf("data = %q", data)
	}
}

func TestDirReadMissing(t *testing.T) {
	d := NewDir(t.TempDir())
	if _, err := d.Read("nope.webp"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDirReadRejectsEscapes(t *testing.T) {
	d := NewDir(t.TempDir())
	for _, p := range []string{"", "../secret", "../../etc/passwd", "/etc/passwd"} {
		if _, err := d.Read(p); err == nil {
			t.Errorf("Read(%q) succeeded, want error", p)
		}
	}
}
