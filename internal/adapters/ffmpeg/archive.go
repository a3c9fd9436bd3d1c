package ffmpeg

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/bodgit/sevenzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

type archiveFormat int

const (
	formatTarXz archiveFormat = iota
	formatZip
	format7z
)

func (f archiveFormat) ext() string {
	switch f {
	case formatZip:
		return ".zip"
	case format7z:
		return ".7z"
	default:
		return ".tar.xz"
	}
}

// extractBinaries copies the entries whose base name is in want from the
// archive into destDir as executables. Directory structure is discarded.
// It returns the names it extracted.
func extractBinaries(ctx context.Context, archivePath string, format archiveFormat, destDir string, want []string) ([]string, error) {
	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}

	var found []string
	visit := func(name string, open func() (io.ReadCloser, error)) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		base := path.Base(filepath.ToSlash(name))
		if !wanted[base] {
			return nil
		}
		rc, err := open()
		if err != nil {
			return fmt.Errorf("failed to open %s in archive: %w", name, err)
		}
		defer rc.Close()
		if err := writeExecutable(filepath.Join(destDir, base), rc); err != nil {
			return err
		}
		delete(wanted, base)
		found = append(found, base)
		return nil
	}

	var err error
	switch format {
	case formatTarXz:
		err = walkTarXz(archivePath, visit)
	case formatZip:
		err = walkZip(archivePath, visit)
	case format7z:
		err = walk7z(archivePath, visit)
	default:
		err = fmt.Errorf("unsupported archive format %d", format)
	}
	return found, err
}

type visitFunc func(name string, open func() (io.ReadCloser, error)) error

func walkTarXz(archivePath string, visit visitFunc) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("invalid xz stream: %w", err)
	}

	tr := tar.NewReader(xr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("invalid tar stream: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := visit(hdr.Name, func() (io.ReadCloser, error) { return io.NopCloser(tr), nil }); err != nil {
			return err
		}
	}
}

func walkZip(archivePath string, visit visitFunc) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("invalid zip archive: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := visit(f.Name, f.Open); err != nil {
			return err
		}
	}
	return nil
}

func walk7z(archivePath string, visit visitFunc) error {
	r, err := sevenzip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("invalid 7z archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if err := visit(f.Name, f.Open); err != nil {
			return err
		}
	}
	return nil
}

func writeExecutable(dest string, r io.Reader) error {
	tmp := dest + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}

	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to extract %s: %w", filepath.Base(dest), err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		return err
	}

	success = true
	return nil
}
