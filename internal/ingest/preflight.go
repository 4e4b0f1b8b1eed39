package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gyeh/billingstats/internal/normalize"
)

// PreflightResult holds the facts about an input file gathered before decoding.
type PreflightResult struct {
	// FilePath is the path passed to Preflight, stored as-is.
	FilePath string
	// FileSHA256 is the hex-encoded SHA-256 digest of the file as stored on disk.
	FileSHA256 string
	// FileSize is the file size in bytes.
	FileSize int64
	// Compressed is true when the file starts with the gzip magic bytes.
	Compressed bool
	// RunID uniquely identifies this run in logs and summaries.
	RunID uuid.UUID
}

// Preflight hashes the file, detects compression and checks that the
// (decompressed) document starts with a JSON array.
func Preflight(log zerolog.Logger, filePath string) (*PreflightResult, error) {
	start := time.Now()

	sha, size, err := normalize.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	compressed, err := isGzip(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight sniff: %w", err)
	}

	rc, err := Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	defer rc.Close()
	first, err := firstNonSpace(bufio.NewReader(rc))
	if err != nil {
		return nil, fmt.Errorf("preflight read: %w", err)
	}
	if first != '[' {
		return nil, fmt.Errorf("preflight validate: document must start with '[', found %q", first)
	}

	pf := &PreflightResult{
		FilePath:   filePath,
		FileSHA256: sha,
		FileSize:   size,
		Compressed: compressed,
		RunID:      uuid.New(),
	}
	log.Info().
		Str("file", filepath.Base(filePath)).
		Str("sha256", sha).
		Int64("bytes", size).
		Bool("gzip", compressed).
		Str("run_id", pf.RunID.String()).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")
	return pf, nil
}

func isGzip(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()
	head := make([]byte, 2)
	n, _ := f.Read(head)
	return n == 2 && bytes.Equal(head, gzipMagic), nil
}

func firstNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, nil
	}
}
