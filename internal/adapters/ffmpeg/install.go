package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/devbush/voxcribe/internal/domain"
	"github.com/devbush/voxcribe/internal/download"
)

// Source is one downloadable archive containing some of the tools.
type Source struct {
	URL    string
	Format archiveFormat
}

// PlatformSources returns the static build archives for goos/goarch.
func PlatformSources(goos, goarch string) ([]Source, error) {
	switch goos {
	case "linux":
		arch := map[string]string{"amd64": "amd64", "arm64": "arm64", "386": "i686", "arm": "armhf"}[goarch]
		if arch == "" {
			return nil, fmt.Errorf("no ffmpeg build for linux/%s", goarch)
		}
		return []Source{{
			URL:    fmt.Sprintf("https://johnvansickle.com/ffmpeg/releases/ffmpeg-release-%s-static.tar.xz", arch),
			Format: formatTarXz,
		}}, nil
	case "windows":
		return []Source{{
			URL:    "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.7z",
			Format: format7z,
		}}, nil
	case "darwin":
		return []Source{
			{URL: "https://evermeet.cx/ffmpeg/getrelease/zip", Format: formatZip},
			{URL: "https://evermeet.cx/ffmpeg/getrelease/ffprobe/zip", Format: formatZip},
		}, nil
	default:
		return nil, fmt.Errorf("no ffmpeg build for %s", goos)
	}
}

// Provisioner installs ffmpeg and ffprobe into a directory.
type Provisioner interface {
	Provision(ctx context.Context, destDir string, progress func(downloaded, total int64)) error
}

// Installer downloads static ffmpeg builds and extracts the two executables.
type Installer struct {
	sources []Source
	dl      *download.Downloader
	log     zerolog.Logger
}

// NewInstaller creates an installer for the given sources. A nil slice
// selects the sources for the running platform.
func NewInstaller(sources []Source, dl *download.Downloader, log zerolog.Logger) *Installer {
	if dl == nil {
		dl = download.New(afero.NewOsFs())
	}
	return &Installer{sources: sources, dl: dl, log: log}
}

// Provision downloads every source archive and extracts ffmpeg and ffprobe
// into destDir. Progress is reported cumulatively across archives.
func (i *Installer) Provision(ctx context.Context, destDir string, progress func(downloaded, total int64)) error {
	const op = "install ffmpeg"

	sources := i.sources
	if sources == nil {
		var err error
		if sources, err = PlatformSources(runtime.GOOS, runtime.GOARCH); err != nil {
			return domain.NewError(domain.ErrNotFound, op, "", err)
		}
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return domain.NewError(domain.ErrTransientIO, op, destDir, err)
	}

	missing := map[string]bool{binaryName("ffmpeg"): true, binaryName("ffprobe"): true}

	var done int64
	for _, src := range sources {
		if len(missing) == 0 {
			break
		}

		archive := filepath.Join(destDir, "download-"+uuid.NewString()+src.Format.ext())
		i.log.Info().Str("url", src.URL).Msg("downloading ffmpeg")

		var report func(written, total int64)
		if progress != nil {
			base := done
			report = func(written, total int64) {
				progress(base+written, base+total)
			}
		}

		n, err := i.dl.ToFile(ctx, src.URL, archive, report)
		if err != nil {
			return err
		}
		done += n

		want := make([]string, 0, len(missing))
		for name := range missing {
			want = append(want, name)
		}
		found, err := extractBinaries(ctx, archive, src.Format, destDir, want)
		if rmErr := os.Remove(archive); rmErr != nil {
			i.log.Warn().Err(rmErr).Str("path", archive).Msg("failed to remove archive")
		}
		if err != nil {
			return domain.Classify(ctx, domain.ErrTransientIO, op, src.URL, err)
		}
		for _, name := range found {
			delete(missing, name)
		}
	}

	if len(missing) > 0 {
		return domain.NewError(domain.ErrTransientIO, op, destDir, fmt.Errorf("archives did not contain ffmpeg and ffprobe"))
	}
	return nil
}

// Ensure Installer implements Provisioner
var _ Provisioner = (*Installer)(nil)
