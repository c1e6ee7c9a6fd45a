package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/lensvault/lensvault_server/internal/fetch"
	"github.com/lensvault/lensvault_server/internal/portfolio"
)

// stubRetriever serves canned bytes per source URL; URLs absent from the map
// fail with a network reason.
type stubRetriever struct {
	data map[string][]byte
}

func (s *stubRetriever) Retrieve(ctx context.Context, d portfolio.MediaDescriptor) fetch.Result {
	result := fetch.Result{Descriptor: d}
	body, ok := s.data[d.SourceURL]
	if !ok {
		result.Failure = &fetch.Failure{Reason: fetch.ReasonNetwork, Err: fmt.Errorf("unreachable")}
		return result
	}
	result.Data = body
	return result
}

func descriptor(url, filename string) portfolio.MediaDescriptor {
	return portfolio.MediaDescriptor{
		Kind:              portfolio.KindImage,
		SourceURL:         url,
		SuggestedFilename: filename,
	}
}

func readEntries(t *testing.T, archiveBytes []byte) map[string][]byte {
	t.Helper()
	reader, err := zip.NewReader(bytes.NewReader(archiveBytes), int64(len(archiveBytes)))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	entries := make(map[string][]byte)
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %q: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %q: %v", f.Name, err)
		}
		entries[f.Name] = data
	}
	return entries
}

func TestBuild_ShouldPackageAllAssets(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn.example.com/a": []byte("aaa"),
		"https://cdn.example.com/b": []byte("bbb"),
	}}
	assembler := NewAssembler(retriever)
	media := []portfolio.MediaDescriptor{
		descriptor("https://cdn.example.com/a", "a.jpg"),
		descriptor("https://cdn.example.com/b", "b.jpg"),
	}

	// when
	result, err := assembler.Build(context.Background(), media, nil)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Failures) != 0 {
		t.Errorf("expected no failures, got %d", len(result.Failures))
	}
	entries := readEntries(t, result.Archive)
	if string(entries["a.jpg"]) != "aaa" || string(entries["b.jpg"]) != "bbb" {
		t.Errorf("unexpected entries: %v", entries)
	}
}

func TestBuild_ShouldTolerateFailedAssets(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn.example.com/a": []byte("aaa"),
		"https://cdn.example.com/c": []byte("ccc"),
	}}
	assembler := NewAssembler(retriever)
	media := []portfolio.MediaDescriptor{
		descriptor("https://cdn.example.com/a", "a.jpg"),
		descriptor("https://cdn.example.com/broken", "b.jpg"),
		descriptor("https://cdn.example.com/c", "c.jpg"),
	}

	// when
	result, err := assembler.Build(context.Background(), media, nil)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(result.Failures))
	}
	if result.Failures[0].SuggestedFilename != "b.jpg" {
		t.Errorf("expected b.jpg to fail, got %s", result.Failures[0].SuggestedFilename)
	}
	entries := readEntries(t, result.Archive)
	if len(entries) != 2 {
		t.Errorf("expected 2 entries, got %d", len(entries))
	}
}

func TestBuild_ShouldFailWhenEveryAssetUnreachable(t *testing.T) {
	// given
	assembler := NewAssembler(&stubRetriever{data: map[string][]byte{}})
	media := []portfolio.MediaDescriptor{
		descriptor("https://cdn.example.com/a", "a.jpg"),
		descriptor("https://cdn.example.com/b", "b.jpg"),
	}

	// when
	result, err := assembler.Build(context.Background(), media, nil)

	// then
	if err != ErrAllFailed {
		t.Errorf("expected ErrAllFailed, got %v", err)
	}
	if result != nil {
		t.Error("expected no result when every asset fails")
	}
}

func TestBuild_ShouldReportMonotonicProgress(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn.example.com/a": []byte("aaa"),
	}}
	assembler := NewAssembler(retriever)
	media := []portfolio.MediaDescriptor{
		descriptor("https://cdn.example.com/a", "a.jpg"),
		descriptor("https://cdn.example.com/broken", "b.jpg"),
		descriptor("https://cdn.example.com/a", "c.jpg"),
	}

	// when
	var updates []ProgressUpdate
	_, err := assembler.Build(context.Background(), media, func(u ProgressUpdate) {
		updates = append(updates, u)
	})

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updates) != 3 {
		t.Fatalf("expected 3 progress updates, got %d", len(updates))
	}
	for i, u := range updates {
		if u.Completed != i+1 || u.Total != 3 {
			t.Errorf("update %d: expected completed=%d total=3, got completed=%d total=%d", i, i+1, u.Completed, u.Total)
		}
	}
	if updates[2].Percent != 100 {
		t.Errorf("expected final percent 100, got %d", updates[2].Percent)
	}
}

func TestBuild_ShouldDisambiguateDuplicateFilenames(t *testing.T) {
	// given
	retriever := &stubRetriever{data: map[string][]byte{
		"https://cdn.example.com/a": []byte("first"),
		"https://cdn.example.com/b": []byte("second"),
		"https://cdn.example.com/c": []byte("third"),
	}}
	assembler := NewAssembler(retriever)
	media := []portfolio.MediaDescriptor{
		descriptor("https://cdn.example.com/a", "photo.jpg"),
		descriptor("https://cdn.example.com/b", "photo.jpg"),
		descriptor("https://cdn.example.com/c", "photo.jpg"),
	}

	// when
	result, err := assembler.Build(context.Background(), media, nil)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := readEntries(t, result.Archive)
	if string(entries["photo.jpg"]) != "first" {
		t.Errorf("expected first entry to keep its name, got %v", entries)
	}
	if string(entries["photo (2).jpg"]) != "second" {
		t.Errorf("expected second entry as photo (2).jpg, got %v", entries)
	}
	if string(entries["photo (3).jpg"]) != "third" {
		t.Errorf("expected third entry as photo (3).jpg, got %v", entries)
	}
}

func TestArchiveName_ShouldNormalizeTitle(t *testing.T) {
	cases := []struct {
		title    string
		expected string
	}{
		{"Summer Wedding 2025", "summer-wedding-2025.zip"},
		{"  Überraschung!  ", "berraschung.zip"},
		{"!!!", "portfolio.zip"},
		{"", "portfolio.zip"},
	}

	for _, c := range cases {
		if got := ArchiveName(c.title); got != c.expected {
			t.Errorf("ArchiveName(%q) = %q, expected %q", c.title, got, c.expected)
		}
	}
}
