package testutil

import (
	"archive/zip"
	"bytes"
	"os"
	"testing"
)

// ZipEntry is one file in a test archive
type ZipEntry struct {
	Name    string
	Body    string
	Symlink bool
}

// File is shorthand for a regular archive entry
func File(name, body string) ZipEntry {
	return ZipEntry{Name: name, Body: body}
}

// Zip builds an in-memory zip archive from entries in order
func Zip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.Name, Method: zip.Deflate}
		if e.Symlink {
			hdr.SetMode(os.ModeSymlink | 0o777)
		} else {
			hdr.SetMode(0o644)
		}
		f, err := w.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("create zip entry %s: %v", e.Name, err)
		}
		if _, err := f.Write([]byte(e.Body)); err != nil {
			t.Fatalf("write zip entry %s: %v", e.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// GameZip returns a minimal playable build, optionally with a thumbnail
func GameZip(t testing.TB, withThumbnail bool) []byte {
	t.Helper()
	entries := []ZipEntry{
		File("index.html", "<html><body>game</body></html>"),
		File("js/main.js", "console.log('hi')"),
	}
	if withThumbnail {
		entries = append(entries, File("thumbnail.png", "\x89PNG"))
	}
	return Zip(t, entries...)
}
