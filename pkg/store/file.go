package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

const lockRetry = 100 * time.Millisecond

// FileBackend stores documents as <root>/<host>/<phase>/<name>.json.
//
// Each phase path is a symlink to a generation directory. A commit writes a
// new generation next to it and swaps the link with a rename, so readers see
// either the old phase or the new one. A per-host flock serialises writers
// and excludes them from readers.
type FileBackend struct {
	Root string
}

// NewFileBackend creates a backend rooted at root.
func NewFileBackend(root string) *FileBackend {
	return &FileBackend{Root: root}
}

// ValidateHost rejects hostnames that cannot name a single directory under
// the store root.
func ValidateHost(host string) error {
	switch {
	case host == "":
		return util.NewValidationError("hostname is empty")
	case host == "." || host == "..":
		return util.NewValidationError(fmt.Sprintf("hostname %q is not a device name", host))
	case strings.ContainsAny(host, `/\`+"\x00"):
		return util.NewValidationError(fmt.Sprintf("hostname %q contains a path separator", host))
	}
	return nil
}

func (b *FileBackend) hostDir(host string) string {
	return filepath.Join(b.Root, host)
}

// Path returns the file holding one document.
func (b *FileBackend) Path(host string, phase model.Phase, name string) string {
	return filepath.Join(b.hostDir(host), string(phase), name+".json")
}

// Commit writes docs to a fresh generation directory and swaps it in.
func (b *FileBackend) Commit(ctx context.Context, host string, phase model.Phase, docs map[string][]byte) error {
	if err := ValidateHost(host); err != nil {
		return err
	}
	dir := b.hostDir(host)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	lock := flock.New(filepath.Join(dir, ".lock"))
	if _, err := lock.TryLockContext(ctx, lockRetry); err != nil {
		return fmt.Errorf("locking %s: %w", dir, err)
	}
	defer lock.Unlock()

	gen := "." + string(phase) + "-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	genDir := filepath.Join(dir, gen)
	if err := os.Mkdir(genDir, 0o755); err != nil {
		return err
	}
	for name, data := range docs {
		if err := writeFile(filepath.Join(genDir, name+".json"), data); err != nil {
			os.RemoveAll(genDir)
			return err
		}
	}

	link := filepath.Join(dir, string(phase))
	previous := generation(link)
	var movedAside bool
	if previous == "" {
		// A plain directory (or nothing) at the phase path: move it aside so
		// the link can take its place.
		if fi, err := os.Lstat(link); err == nil && fi.IsDir() {
			previous = gen + ".old"
			if err := os.Rename(link, filepath.Join(dir, previous)); err != nil {
				os.RemoveAll(genDir)
				return err
			}
			movedAside = true
		}
	}

	tmpLink := filepath.Join(dir, gen+".link")
	if err := os.Symlink(gen, tmpLink); err != nil {
		os.RemoveAll(genDir)
		if movedAside {
			os.Rename(filepath.Join(dir, previous), link)
		}
		return err
	}
	if err := os.Rename(tmpLink, link); err != nil {
		os.Remove(tmpLink)
		os.RemoveAll(genDir)
		if movedAside {
			os.Rename(filepath.Join(dir, previous), link)
		}
		return fmt.Errorf("swapping %s: %w", link, err)
	}
	if previous != "" {
		os.RemoveAll(filepath.Join(dir, previous))
	}
	util.WithPhase(host, string(phase)).Debugf("Committed %s", genDir)
	return nil
}

// Read returns one document under a shared lock.
func (b *FileBackend) Read(ctx context.Context, host string, phase model.Phase, name string) ([]byte, error) {
	if err := ValidateHost(host); err != nil {
		return nil, err
	}
	dir := b.hostDir(host)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, notFound(host, phase, name)
	}
	lock := flock.New(filepath.Join(dir, ".lock"))
	if _, err := lock.TryRLockContext(ctx, lockRetry); err != nil {
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}
	defer lock.Unlock()

	data, err := os.ReadFile(b.Path(host, phase, name))
	if os.IsNotExist(err) {
		return nil, notFound(host, phase, name)
	}
	return data, err
}

// generation returns the directory a phase link points to, or "".
func generation(link string) string {
	target, err := os.Readlink(link)
	if err != nil {
		return ""
	}
	return target
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
