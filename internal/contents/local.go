package contents

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// checkpointDir is where the local backend keeps snapshots, relative to
// the root. Dot-prefixed so listings never surface it.
const checkpointDir = ".quire-checkpoints"

// Local is a Manager over a directory tree on disk. Saves are atomic:
// content is written to a temp file and renamed into place, so a crash
// never leaves a half-written document.
type Local struct {
	root string
}

// NewLocal creates a local backend rooted at dir. The directory must exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, pathErr("open", dir, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pathErr("open", dir, ErrNotFound)
		}
		return nil, pathErr("open", dir, err)
	}
	if !fi.IsDir() {
		return nil, pathErr("open", dir, ErrInvalidPath)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

// abs converts a cleaned content path to an absolute filesystem path.
func (l *Local) abs(p string) string {
	return filepath.Join(l.root, filepath.FromSlash(p))
}

// ckptPath returns the slash path of the checkpoint directory for cp.
func ckptPath(cp string) string {
	if cp == "" {
		return checkpointDir
	}
	return checkpointDir + "/" + cp
}

// Get implements Manager.
func (l *Local) Get(ctx context.Context, p string, opts FetchOptions) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(l.abs(cp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pathErr("get", p, ErrNotFound)
		}
		return nil, pathErr("get", p, err)
	}

	model := l.statModel(cp, fi)
	if fi.IsDir() || !opts.IncludeContent {
		return model, nil
	}

	data, err := os.ReadFile(l.abs(cp))
	if err != nil {
		return nil, pathErr("get", p, err)
	}

	format := opts.Format
	if format == "" {
		format = InferFormat(model.Type)
		if format == FormatText && !utf8.Valid(data) {
			format = FormatBase64
		}
	}

	switch format {
	case FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(data)
	case FormatText, FormatJSON:
		if !utf8.Valid(data) {
			return nil, pathErr("get", p, ErrUnsupportedFormat)
		}
		model.Content = string(data)
	default:
		return nil, pathErr("get", p, ErrUnsupportedFormat)
	}
	model.Format = format
	if opts.Type != "" {
		model.Type = opts.Type
	}
	return model, nil
}

// Save implements Manager.
func (l *Local) Save(ctx context.Context, p string, opts SaveOptions) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return nil, err
	}
	if cp == "" {
		return nil, pathErr("save", p, ErrIsDirectory)
	}

	if fi, err := os.Stat(l.abs(cp)); err == nil {
		if fi.IsDir() {
			return nil, pathErr("save", p, ErrIsDirectory)
		}
		if fi.Mode().Perm()&0o200 == 0 {
			return nil, pathErr("save", p, ErrNotWritable)
		}
	}

	if opts.Type == TypeDirectory {
		if err := os.MkdirAll(l.abs(cp), 0o755); err != nil {
			return nil, pathErr("save", p, err)
		}
		fi, err := os.Stat(l.abs(cp))
		if err != nil {
			return nil, pathErr("save", p, err)
		}
		return l.statModel(cp, fi), nil
	}

	var data []byte
	switch opts.Format {
	case FormatBase64:
		data, err = base64.StdEncoding.DecodeString(opts.Content)
		if err != nil {
			return nil, pathErr("save", p, fmt.Errorf("decode base64: %w", err))
		}
	default:
		data = []byte(opts.Content)
	}

	if err := writeFileAtomic(l.abs(cp), data); err != nil {
		return nil, pathErr("save", p, err)
	}

	fi, err := os.Stat(l.abs(cp))
	if err != nil {
		return nil, pathErr("save", p, err)
	}
	model := l.statModel(cp, fi)
	if opts.Type != "" {
		model.Type = opts.Type
	}
	return model, nil
}

// Rename implements Manager.
func (l *Local) Rename(ctx context.Context, oldPath, newPath string) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	oldCP, err := CleanPath(oldPath)
	if err != nil {
		return nil, err
	}
	newCP, err := CleanPath(newPath)
	if err != nil {
		return nil, err
	}
	if oldCP == "" || newCP == "" {
		return nil, pathErr("rename", oldPath, ErrInvalidPath)
	}

	if _, err := os.Stat(l.abs(oldCP)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pathErr("rename", oldPath, ErrNotFound)
		}
		return nil, pathErr("rename", oldPath, err)
	}
	if _, err := os.Stat(l.abs(newCP)); err == nil {
		return nil, pathErr("rename", newPath, ErrExists)
	}

	if err := os.MkdirAll(filepath.Dir(l.abs(newCP)), 0o755); err != nil {
		return nil, pathErr("rename", newPath, err)
	}
	if err := os.Rename(l.abs(oldCP), l.abs(newCP)); err != nil {
		return nil, pathErr("rename", oldPath, err)
	}

	// Carry snapshots along with the content.
	oldCkpt := l.abs(ckptPath(oldCP))
	if _, err := os.Stat(oldCkpt); err == nil {
		newCkpt := l.abs(ckptPath(newCP))
		_ = os.MkdirAll(filepath.Dir(newCkpt), 0o755)
		_ = os.Rename(oldCkpt, newCkpt)
	}

	fi, err := os.Stat(l.abs(newCP))
	if err != nil {
		return nil, pathErr("rename", newPath, err)
	}
	return l.statModel(newCP, fi), nil
}

// Delete implements Manager.
func (l *Local) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}
	if cp == "" {
		return pathErr("delete", p, ErrInvalidPath)
	}

	if err := os.Remove(l.abs(cp)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pathErr("delete", p, ErrNotFound)
		}
		return pathErr("delete", p, err)
	}

	// Snapshots for the path go with it.
	_ = os.RemoveAll(l.abs(ckptPath(cp)))
	return nil
}

// List implements Manager.
func (l *Local) List(ctx context.Context, dir string) ([]*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(dir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.abs(cp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, pathErr("list", dir, ErrNotFound)
		}
		return nil, pathErr("list", dir, err)
	}

	models := make([]*Model, 0, len(entries))
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		childPath := entry.Name()
		if cp != "" {
			childPath = cp + "/" + entry.Name()
		}
		models = append(models, l.statModel(childPath, fi))
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// statModel builds a metadata-only model from file info.
func (l *Local) statModel(cp string, fi fs.FileInfo) *Model {
	model := &Model{
		Path:         cp,
		Name:         BaseName(cp),
		Size:         fi.Size(),
		Created:      fi.ModTime(),
		LastModified: fi.ModTime(),
		Writable:     fi.Mode().Perm()&0o200 != 0,
	}
	if fi.IsDir() {
		model.Type = TypeDirectory
		model.Size = 0
		model.Writable = true
	} else {
		model.Type = InferType(cp)
		model.Mimetype = DetectMimetype(cp)
	}
	return model
}

// CreateCheckpoint implements Checkpointer.
func (l *Local) CreateCheckpoint(ctx context.Context, p string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return Checkpoint{}, err
	}

	data, err := os.ReadFile(l.abs(cp))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Checkpoint{}, pathErr("checkpoint", p, ErrNotFound)
		}
		return Checkpoint{}, pathErr("checkpoint", p, err)
	}

	id := ulid.MustNew(ulid.Now(), rand.Reader)
	dir := l.abs(ckptPath(cp))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Checkpoint{}, pathErr("checkpoint", p, err)
	}
	file := filepath.Join(dir, id.String())
	if err := writeFileAtomic(file, data); err != nil {
		return Checkpoint{}, pathErr("checkpoint", p, err)
	}

	return Checkpoint{ID: id.String(), LastModified: ulid.Time(id.Time())}, nil
}

// ListCheckpoints implements Checkpointer.
func (l *Local) ListCheckpoints(ctx context.Context, p string) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(l.abs(ckptPath(cp)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, pathErr("checkpoint", p, err)
	}

	checkpoints := make([]Checkpoint, 0, len(entries))
	for _, entry := range entries {
		id, err := ulid.ParseStrict(entry.Name())
		if err != nil {
			continue
		}
		checkpoints = append(checkpoints, Checkpoint{
			ID:           id.String(),
			LastModified: ulid.Time(id.Time()),
		})
	}

	// ULIDs sort lexicographically by creation time.
	sort.Slice(checkpoints, func(i, j int) bool { return checkpoints[i].ID < checkpoints[j].ID })
	return checkpoints, nil
}

// RestoreCheckpoint implements Checkpointer.
func (l *Local) RestoreCheckpoint(ctx context.Context, p, checkpointID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(l.abs(ckptPath(cp) + "/" + checkpointID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pathErr("restore", p, ErrCheckpointNotFound)
		}
		return pathErr("restore", p, err)
	}

	if err := writeFileAtomic(l.abs(cp), data); err != nil {
		return pathErr("restore", p, err)
	}
	return nil
}

// DeleteCheckpoint implements Checkpointer.
func (l *Local) DeleteCheckpoint(ctx context.Context, p, checkpointID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(l.abs(ckptPath(cp) + "/" + checkpointID)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return pathErr("checkpoint", p, ErrCheckpointNotFound)
		}
		return pathErr("checkpoint", p, err)
	}
	return nil
}

// writeFileAtomic writes data via a temp file in the target directory and
// renames it into place.
func writeFileAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".quire-save-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, target)
}
