package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/pkg/sftp"

	"github.com/rhuss/copaw/pkg/debug"
)

// UploadDir copies the regular files directly inside localDir to
// remoteDir over SFTP, creating remoteDir when it is missing.
// Subdirectories are not descended into. For each file a line
// "  name -> remoteDir/name" is written to progress, which may be nil.
// It returns the number of files uploaded.
func (c *Client) UploadDir(ctx context.Context, localDir, remoteDir string, progress io.Writer) (int, error) {
	names, err := regularFiles(localDir)
	if err != nil {
		return 0, err
	}
	if progress == nil {
		progress = io.Discard
	}

	sc, err := sftp.NewClient(c.ssh)
	if err != nil {
		return 0, fmt.Errorf("start sftp: %w", err)
	}
	defer sc.Close()

	if err := sc.MkdirAll(remoteDir); err != nil {
		return 0, fmt.Errorf("create %s: %w", remoteDir, err)
	}

	uploaded := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return uploaded, err
		}
		dst := remotePath(remoteDir, name)
		fmt.Fprintf(progress, "  %s -> %s\n", name, dst)
		if err := uploadFile(sc, filepath.Join(localDir, name), dst); err != nil {
			return uploaded, err
		}
		uploaded++
	}

	debug.Log("remote", "upload complete", "local", localDir, "remote", remoteDir, "files", uploaded)
	return uploaded, nil
}

func uploadFile(sc *sftp.Client, src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := sc.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := sc.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	return nil
}

// regularFiles lists the names of regular files in dir, following
// symlinks, sorted by name.
func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// remotePath joins remote paths with forward slashes regardless of the
// local OS.
func remotePath(dir, name string) string {
	return path.Join(dir, name)
}
