// Package archive bundles produced collages into a single ZIP compressed
// with Zstandard for compact hand-off to downstream consumers.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE 6.3.7).
const zipMethodZstd uint16 = 93

func init() {
	// Register Zstandard (zstd) as a ZIP compressor. Collages are JPEGs, so
	// the default encoder level is plenty; higher levels barely help on
	// already-compressed pixels.
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w)
	})
}

// Create writes the given files into a new ZIP at zipPath using zstd
// compression. Files are stored under their base names. Missing inputs abort
// the archive rather than silently producing a partial bundle.
func Create(zipPath string, files []string) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to archive")
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range files {
		if err := addFile(zw, path); err != nil {
			zw.Close()
			os.Remove(zipPath)
			return err
		}
	}
	if err := zw.Close(); err != nil {
		os.Remove(zipPath)
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		return fmt.Errorf("failed to stat archive: %w", err)
	}
	log.Info().
		Str("path", zipPath).
		Int("files", len(files)).
		Int64("bytes", info.Size()).
		Msg("Collage archive written")

	return nil
}

func addFile(zw *zip.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(path),
		Method: zipMethodZstd,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", path, err)
	}
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("failed to write %s into archive: %w", path, err)
	}
	return nil
}
