package ytdlp

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/bodgit/sevenzip"
	"github.com/ulikunitz/xz"
)

const (
	ffmpegWindowsURL = "https://www.gyan.dev/ffmpeg/builds/ffmpeg-release-essentials.7z"
	ffmpegLinuxURL   = "https://johnvansickle.com/ffmpeg/releases/ffmpeg-release-%s-static.tar.xz"
)

func ffmpegBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func ffprobeBinaryName() string {
	if runtime.GOOS == "windows" {
		return "ffprobe.exe"
	}
	return "ffprobe"
}

func (d *Downloader) GetFFmpegPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ffmpegPath == "" {
		d.ffmpegPath = findExecutable(d.binDir, ffmpegBinaryName())
	}
	return d.ffmpegPath
}

func (d *Downloader) IsFFmpegAvailable() bool {
	return d.GetFFmpegPath() != ""
}

func (d *Downloader) FFmpegInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install ffmpeg with Homebrew:\n  brew install ffmpeg"
	case "windows":
		return "ffmpeg can be installed automatically:\n  yt2text deps install"
	default:
		return "Install ffmpeg with your package manager, for example:\n" +
			"  sudo apt install ffmpeg\n" +
			"or let yt2text fetch a static build:\n  yt2text deps install"
	}
}

// InstallFFmpeg fetches a static ffmpeg build into the bin dir.
// Windows uses the gyan.dev .7z, Linux the johnvansickle .tar.xz.
func (d *Downloader) InstallFFmpeg(ctx context.Context, progress func(downloaded, total int64)) error {
	var (
		url     string
		extract func(archive, destDir string, names []string) error
		ext     string
	)

	switch runtime.GOOS {
	case "windows":
		url, extract, ext = ffmpegWindowsURL, extractFrom7z, ".7z"
	case "linux":
		arch := "amd64"
		if runtime.GOARCH == "arm64" {
			arch = "arm64"
		}
		url, extract, ext = fmt.Sprintf(ffmpegLinuxURL, arch), extractFromTarXz, ".tar.xz"
	default:
		return fmt.Errorf("automatic ffmpeg install is not supported on %s\n%s", runtime.GOOS, d.FFmpegInstructions())
	}

	if err := os.MkdirAll(d.binDir, 0755); err != nil {
		return err
	}

	archive := filepath.Join(d.binDir, "ffmpeg-download"+ext)
	if err := downloadFile(ctx, url, archive, progress); err != nil {
		return fmt.Errorf("failed to download ffmpeg: %w", err)
	}
	defer os.Remove(archive)

	if err := extract(archive, d.binDir, []string{ffmpegBinaryName(), ffprobeBinaryName()}); err != nil {
		return fmt.Errorf("failed to extract ffmpeg: %w", err)
	}

	d.mu.Lock()
	d.ffmpegPath = filepath.Join(d.binDir, ffmpegBinaryName())
	d.mu.Unlock()
	return nil
}

// wantedSet tracks which binaries still need extracting
type wantedSet map[string]bool

func newWantedSet(names []string) wantedSet {
	w := make(wantedSet, len(names))
	for _, n := range names {
		w[n] = false
	}
	return w
}

func (w wantedSet) match(entry string) (string, bool) {
	base := filepath.Base(filepath.FromSlash(entry))
	done, ok := w[base]
	if !ok || done {
		return "", false
	}
	return base, true
}

func (w wantedSet) missing() error {
	for name, done := range w {
		if !done {
			return fmt.Errorf("%s not found in archive", name)
		}
	}
	return nil
}

func writeExecutable(path string, r io.Reader) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractFromTarXz(archive, destDir string, names []string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return fmt.Errorf("xz: %w", err)
	}

	wanted := newWantedSet(names)
	tr := tar.NewReader(xr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, ok := wanted.match(hdr.Name)
		if !ok {
			continue
		}
		if err := writeExecutable(filepath.Join(destDir, name), tr); err != nil {
			return err
		}
		wanted[name] = true
	}

	return wanted.missing()
}

func extractFrom7z(archive, destDir string, names []string) error {
	r, err := sevenzip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("7z: %w", err)
	}
	defer r.Close()

	wanted := newWantedSet(names)
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name, ok := wanted.match(f.Name)
		if !ok {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		err = writeExecutable(filepath.Join(destDir, name), rc)
		rc.Close()
		if err != nil {
			return err
		}
		wanted[name] = true
	}

	return wanted.missing()
}
