// Package archive packages a portfolio's assets into one zip file, tolerating
// per-asset fetch failures.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lensvault/lensvault_server/internal/fetch"
	"github.com/lensvault/lensvault_server/internal/portfolio"
	"github.com/rs/zerolog/log"
)

// ErrAllFailed means not a single asset could be retrieved. No archive is
// produced in that case; an empty archive is worse than no action.
var ErrAllFailed = errors.New("no assets could be retrieved")

// Retriever is the per-asset fetch dependency.
type Retriever interface {
	Retrieve(ctx context.Context, d portfolio.MediaDescriptor) fetch.Result
}

// ProgressUpdate is emitted after each processed asset. Completed reaches
// Total at termination regardless of individual failures.
type ProgressUpdate struct {
	JobID     string `json:"jobId"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
}

// Result is a finished build. Failures lists the descriptors that could not
// be included; an empty list means every asset made it in.
type Result struct {
	Archive  []byte
	Failures []portfolio.MediaDescriptor
}

type Assembler struct {
	retriever Retriever
}

func NewAssembler(retriever Retriever) *Assembler {
	return &Assembler{retriever: retriever}
}

// Build iterates the media list sequentially, in its given order, fetching
// each asset and inserting the successful ones into a zip. Entry order inside
// the archive is part of the observable contract, so no reordering for
// performance. onProgress may be nil.
func (a *Assembler) Build(ctx context.Context, media []portfolio.MediaDescriptor, onProgress func(ProgressUpdate)) (*Result, error) {
	jobID := uuid.New().String()
	total := len(media)

	log.Info().Str("jobId", jobID).Int("total", total).Msg("Archive build started")

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	var failures []portfolio.MediaDescriptor
	usedNames := make(map[string]int)
	completed := 0

	for _, d := range media {
		result := a.retriever.Retrieve(ctx, d)
		if result.Failed() {
			failures = append(failures, d)
		} else {
			name := disambiguate(usedNames, d.SuggestedFilename)
			entry, err := writer.Create(name)
			if err != nil {
				return nil, fmt.Errorf("failed to encode archive entry %q: %w", name, err)
			}
			if _, err := entry.Write(result.Data); err != nil {
				return nil, fmt.Errorf("failed to encode archive entry %q: %w", name, err)
			}
		}

		completed++
		if onProgress != nil {
			onProgress(ProgressUpdate{
				JobID:     jobID,
				Completed: completed,
				Total:     total,
				Percent:   completed * 100 / total,
			})
		}
	}

	if len(failures) == total {
		log.Error().Str("jobId", jobID).Int("total", total).Msg("Archive build failed: every asset unreachable")
		return nil, ErrAllFailed
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	log.Info().
		Str("jobId", jobID).
		Int("included", total-len(failures)).
		Int("failed", len(failures)).
		Msg("Archive build complete")

	return &Result{
		Archive:  buf.Bytes(),
		Failures: failures,
	}, nil
}

// disambiguate returns a unique entry name, suffixing duplicates before the
// extension so no entry silently overwrites another.
func disambiguate(used map[string]int, name string) string {
	count := used[name]
	used[name] = count + 1
	if count == 0 {
		return name
	}

	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s (%d)%s", base, count+1, ext)
}

// ArchiveName derives the downloadable archive filename from a portfolio
// title: lower-cased, non-alphanumeric runs collapsed to a dash.
func ArchiveName(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		name = "portfolio"
	}
	return name + ".zip"
}
