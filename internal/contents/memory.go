package contents

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

// Memory is a map-backed Manager with checkpoint support. It backs tests
// and scratch sessions where nothing should touch disk.
type Memory struct {
	mu          sync.RWMutex
	files       map[string]*memEntry
	dirs        map[string]struct{}
	checkpoints map[string][]memCheckpoint
}

type memEntry struct {
	data     []byte
	typ      Type
	created  time.Time
	modified time.Time
}

type memCheckpoint struct {
	id    string
	data  []byte
	taken time.Time
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		files:       make(map[string]*memEntry),
		dirs:        make(map[string]struct{}),
		checkpoints: make(map[string][]memCheckpoint),
	}
}

// Seed stores initial content, creating parent directories. Intended for
// test setup; errors surface as panics.
func (m *Memory) Seed(path, content string) *Memory {
	_, err := m.Save(context.Background(), path, SaveOptions{Content: content})
	if err != nil {
		panic(err)
	}
	return m
}

// Get implements Manager.
func (m *Memory) Get(ctx context.Context, p string, opts FetchOptions) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.isDir(cp) {
		return &Model{
			Path:     cp,
			Name:     BaseName(cp),
			Type:     TypeDirectory,
			Writable: true,
		}, nil
	}

	entry, ok := m.files[cp]
	if !ok {
		return nil, pathErr("get", p, ErrNotFound)
	}

	model := entry.model(cp)
	if !opts.IncludeContent {
		return model, nil
	}

	format := opts.Format
	if format == "" {
		format = InferFormat(model.Type)
		if format == FormatText && !utf8.Valid(entry.data) {
			format = FormatBase64
		}
	}

	switch format {
	case FormatBase64:
		model.Content = base64.StdEncoding.EncodeToString(entry.data)
	case FormatText, FormatJSON:
		if !utf8.Valid(entry.data) {
			return nil, pathErr("get", p, ErrUnsupportedFormat)
		}
		model.Content = string(entry.data)
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
func (m *Memory) Save(ctx context.Context, p string, opts SaveOptions) (*Model, error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dirs[cp]; ok {
		return nil, pathErr("save", p, ErrIsDirectory)
	}

	if opts.Type == TypeDirectory {
		m.mkdirs(cp)
		return &Model{Path: cp, Name: BaseName(cp), Type: TypeDirectory, Writable: true}, nil
	}

	var data []byte
	switch opts.Format {
	case FormatBase64:
		data, err = base64.StdEncoding.DecodeString(opts.Content)
		if err != nil {
			return nil, pathErr("save", p, err)
		}
	default:
		data = []byte(opts.Content)
	}

	now := time.Now()
	entry, ok := m.files[cp]
	if !ok {
		typ := opts.Type
		if typ == "" {
			typ = InferType(cp)
		}
		entry = &memEntry{typ: typ, created: now}
		m.files[cp] = entry
		m.mkdirs(DirName(cp))
	}
	entry.data = data
	entry.modified = now
	if opts.Type != "" {
		entry.typ = opts.Type
	}

	return entry.model(cp), nil
}

// Rename implements Manager. Renaming a directory moves its subtree.
func (m *Memory) Rename(ctx context.Context, oldPath, newPath string) (*Model, error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[newCP]; ok {
		return nil, pathErr("rename", newPath, ErrExists)
	}
	if _, ok := m.dirs[newCP]; ok {
		return nil, pathErr("rename", newPath, ErrExists)
	}

	if entry, ok := m.files[oldCP]; ok {
		delete(m.files, oldCP)
		m.files[newCP] = entry
		m.mkdirs(DirName(newCP))
		entry.modified = time.Now()

		if ckpts, ok := m.checkpoints[oldCP]; ok {
			delete(m.checkpoints, oldCP)
			m.checkpoints[newCP] = ckpts
		}
		return entry.model(newCP), nil
	}

	if _, ok := m.dirs[oldCP]; ok {
		prefix := oldCP + "/"
		if newCP == oldCP || strings.HasPrefix(newCP+"/", prefix) {
			return nil, pathErr("rename", newPath, ErrInvalidPath)
		}

		// Collect before mutating; inserting while ranging a map is unsafe.
		var movedFiles, movedDirs []string
		for p := range m.files {
			if strings.HasPrefix(p, prefix) {
				movedFiles = append(movedFiles, p)
			}
		}
		for d := range m.dirs {
			if d == oldCP || strings.HasPrefix(d, prefix) {
				movedDirs = append(movedDirs, d)
			}
		}
		for _, p := range movedFiles {
			m.files[newCP+"/"+strings.TrimPrefix(p, prefix)] = m.files[p]
			delete(m.files, p)
		}
		for _, d := range movedDirs {
			m.dirs[newCP+strings.TrimPrefix(d, oldCP)] = struct{}{}
			delete(m.dirs, d)
		}
		m.mkdirs(DirName(newCP))
		return &Model{Path: newCP, Name: BaseName(newCP), Type: TypeDirectory, Writable: true}, nil
	}

	return nil, pathErr("rename", oldPath, ErrNotFound)
}

// Delete implements Manager. Directories must be empty.
func (m *Memory) Delete(ctx context.Context, p string) error {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[cp]; ok {
		delete(m.files, cp)
		delete(m.checkpoints, cp)
		return nil
	}

	if _, ok := m.dirs[cp]; ok {
		prefix := cp + "/"
		for p := range m.files {
			if strings.HasPrefix(p, prefix) {
				return pathErr("delete", cp, errors.New("directory not empty"))
			}
		}
		for d := range m.dirs {
			if strings.HasPrefix(d, prefix) {
				return pathErr("delete", cp, errors.New("directory not empty"))
			}
		}
		delete(m.dirs, cp)
		return nil
	}

	return pathErr("delete", p, ErrNotFound)
}

// List implements Manager.
func (m *Memory) List(ctx context.Context, dir string) ([]*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(dir)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isDir(cp) {
		return nil, pathErr("list", dir, ErrNotFound)
	}

	var models []*Model
	for p, entry := range m.files {
		if DirName(p) == cp && !IsHidden(p) {
			models = append(models, entry.model(p))
		}
	}
	for d := range m.dirs {
		if d != "" && DirName(d) == cp && !IsHidden(d) {
			models = append(models, &Model{
				Path:     d,
				Name:     BaseName(d),
				Type:     TypeDirectory,
				Writable: true,
			})
		}
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
	return models, nil
}

// CreateCheckpoint implements Checkpointer.
func (m *Memory) CreateCheckpoint(ctx context.Context, p string) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return Checkpoint{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.files[cp]
	if !ok {
		return Checkpoint{}, pathErr("checkpoint", p, ErrNotFound)
	}

	id := ulid.MustNew(ulid.Now(), rand.Reader)
	data := make([]byte, len(entry.data))
	copy(data, entry.data)

	ckpt := memCheckpoint{id: id.String(), data: data, taken: ulid.Time(id.Time())}
	m.checkpoints[cp] = append(m.checkpoints[cp], ckpt)

	return Checkpoint{ID: ckpt.id, LastModified: ckpt.taken}, nil
}

// ListCheckpoints implements Checkpointer.
func (m *Memory) ListCheckpoints(ctx context.Context, p string) ([]Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ckpts := m.checkpoints[cp]
	out := make([]Checkpoint, 0, len(ckpts))
	for _, c := range ckpts {
		out = append(out, Checkpoint{ID: c.id, LastModified: c.taken})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// RestoreCheckpoint implements Checkpointer.
func (m *Memory) RestoreCheckpoint(ctx context.Context, p, checkpointID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.files[cp]
	if !ok {
		return pathErr("restore", p, ErrNotFound)
	}
	for _, c := range m.checkpoints[cp] {
		if c.id == checkpointID {
			entry.data = make([]byte, len(c.data))
			copy(entry.data, c.data)
			entry.modified = time.Now()
			return nil
		}
	}
	return pathErr("restore", p, ErrCheckpointNotFound)
}

// DeleteCheckpoint implements Checkpointer.
func (m *Memory) DeleteCheckpoint(ctx context.Context, p, checkpointID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp, err := CleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ckpts := m.checkpoints[cp]
	for i, c := range ckpts {
		if c.id == checkpointID {
			m.checkpoints[cp] = append(ckpts[:i], ckpts[i+1:]...)
			return nil
		}
	}
	return pathErr("checkpoint", p, ErrCheckpointNotFound)
}

// isDir reports whether cp names a directory. Callers hold the lock.
func (m *Memory) isDir(cp string) bool {
	if cp == "" {
		return true
	}
	_, ok := m.dirs[cp]
	return ok
}

// mkdirs records cp and its ancestors as directories. Callers hold the lock.
func (m *Memory) mkdirs(cp string) {
	for cp != "" {
		m.dirs[cp] = struct{}{}
		cp = DirName(cp)
	}
}

// model builds a metadata-plus-nothing view of the entry.
func (e *memEntry) model(cp string) *Model {
	return &Model{
		Path:         cp,
		Name:         BaseName(cp),
		Type:         e.typ,
		Mimetype:     DetectMimetype(cp),
		Size:         int64(len(e.data)),
		Created:      e.created,
		LastModified: e.modified,
		Writable:     true,
	}
}
