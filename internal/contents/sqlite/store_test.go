package sqlite

import (
	"context"
	"encoding/base64"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quirelabs/quire/internal/contents"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "contents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_OpenReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "contents.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.Save(ctx, "notes/plan.md", contents.SaveOptions{Content: "# Plan"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	model, err := s.Get(ctx, "notes/plan.md", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "# Plan", model.Content)
}

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.Save(ctx, "notes/plan.md", contents.SaveOptions{Content: "# Plan"})
	require.NoError(t, err)
	require.Equal(t, "notes/plan.md", saved.Path)
	require.Equal(t, "plan.md", saved.Name)
	require.Equal(t, contents.TypeFile, saved.Type)
	require.Equal(t, int64(6), saved.Size)
	require.Empty(t, saved.Content)
	require.False(t, saved.Created.IsZero())
	require.False(t, saved.LastModified.IsZero())

	model, err := s.Get(ctx, "notes/plan.md", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "# Plan", model.Content)
	require.Equal(t, contents.FormatText, model.Format)
	require.True(t, model.Writable)

	meta, err := s.Get(ctx, "notes/plan.md", contents.FetchOptions{})
	require.NoError(t, err)
	require.Empty(t, meta.Content)
	require.Empty(t, meta.Format)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "nope.txt", contents.DefaultFetchOptions())
	require.ErrorIs(t, err, contents.ErrNotFound)
}

func TestStore_GetDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "notes/plan.md", contents.SaveOptions{Content: "# Plan"})
	require.NoError(t, err)

	dir, err := s.Get(ctx, "notes", contents.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, contents.TypeDirectory, dir.Type)
	require.Empty(t, dir.Content)

	root, err := s.Get(ctx, "", contents.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, contents.TypeDirectory, root.Type)
	require.Equal(t, "", root.Path)
}

func TestStore_SaveUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Save(ctx, "a.txt", contents.SaveOptions{Content: "one"})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, err := s.Save(ctx, "a.txt", contents.SaveOptions{Content: "three!!"})
	require.NoError(t, err)
	require.Equal(t, first.Created, second.Created)
	require.True(t, second.LastModified.After(first.LastModified))
	require.Equal(t, int64(7), second.Size)

	model, err := s.Get(ctx, "a.txt", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "three!!", model.Content)
}

func TestStore_BinaryRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	raw := []byte{0x89, 'P', 'N', 'G', 0x00, 0xFF}
	_, err := s.Save(ctx, "img/logo.png", contents.SaveOptions{
		Format:  contents.FormatBase64,
		Content: base64.StdEncoding.EncodeToString(raw),
	})
	require.NoError(t, err)

	model, err := s.Get(ctx, "img/logo.png", contents.FetchOptions{IncludeContent: true})
	require.NoError(t, err)
	require.Equal(t, contents.FormatBase64, model.Format)
	decoded, err := base64.StdEncoding.DecodeString(model.Content)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)

	_, err = s.Get(ctx, "img/logo.png", contents.FetchOptions{
		Format:         contents.FormatText,
		IncludeContent: true,
	})
	require.ErrorIs(t, err, contents.ErrUnsupportedFormat)

	_, err = s.Save(ctx, "img/bad.png", contents.SaveOptions{
		Format:  contents.FormatBase64,
		Content: "%%%",
	})
	require.Error(t, err)
}

func TestStore_SaveOntoDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "notes/plan.md", contents.SaveOptions{Content: "# Plan"})
	require.NoError(t, err)

	_, err = s.Save(ctx, "notes", contents.SaveOptions{Content: "x"})
	require.ErrorIs(t, err, contents.ErrIsDirectory)

	_, err = s.Save(ctx, "", contents.SaveOptions{Content: "x"})
	require.ErrorIs(t, err, contents.ErrIsDirectory)
}

func TestStore_MakeDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	model, err := s.Save(ctx, "projects/go", contents.SaveOptions{Type: contents.TypeDirectory})
	require.NoError(t, err)
	require.Equal(t, contents.TypeDirectory, model.Type)

	got, err := s.Get(ctx, "projects/go", contents.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, contents.TypeDirectory, got.Type)

	listing, err := s.List(ctx, "projects")
	require.NoError(t, err)
	require.Len(t, listing, 1)
	require.Equal(t, "go", listing[0].Name)

	_, err = s.Save(ctx, "projects/go", contents.SaveOptions{Type: contents.TypeDirectory})
	require.ErrorIs(t, err, contents.ErrIsDirectory)
}

func TestStore_KeepsTypeOnResave(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "book.quire", contents.SaveOptions{
		Type:    contents.TypeNotebook,
		Format:  contents.FormatJSON,
		Content: `{"rev":1}`,
	})
	require.NoError(t, err)

	_, err = s.Save(ctx, "book.quire", contents.SaveOptions{Content: `{"rev":2}`})
	require.NoError(t, err)

	meta, err := s.Get(ctx, "book.quire", contents.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, contents.TypeNotebook, meta.Type)
}

func TestStore_RenameFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "a.txt", contents.SaveOptions{Content: "body"})
	require.NoError(t, err)
	ck, err := s.CreateCheckpoint(ctx, "a.txt")
	require.NoError(t, err)

	model, err := s.Rename(ctx, "a.txt", "docs/b.txt")
	require.NoError(t, err)
	require.Equal(t, "docs/b.txt", model.Path)
	require.Equal(t, "b.txt", model.Name)

	_, err = s.Get(ctx, "a.txt", contents.DefaultFetchOptions())
	require.ErrorIs(t, err, contents.ErrNotFound)

	got, err := s.Get(ctx, "docs/b.txt", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "body", got.Content)

	// Checkpoints follow the file.
	cks, err := s.ListCheckpoints(ctx, "docs/b.txt")
	require.NoError(t, err)
	require.Len(t, cks, 1)
	require.Equal(t, ck.ID, cks[0].ID)

	old, err := s.ListCheckpoints(ctx, "a.txt")
	require.NoError(t, err)
	require.Empty(t, old)
}

func TestStore_RenameMisses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Rename(ctx, "ghost.txt", "real.txt")
	require.ErrorIs(t, err, contents.ErrNotFound)

	_, err = s.Save(ctx, "a.txt", contents.SaveOptions{Content: "a"})
	require.NoError(t, err)
	_, err = s.Save(ctx, "b.txt", contents.SaveOptions{Content: "b"})
	require.NoError(t, err)

	_, err = s.Rename(ctx, "a.txt", "b.txt")
	require.ErrorIs(t, err, contents.ErrExists)

	_, err = s.Save(ctx, "box/c.txt", contents.SaveOptions{Content: "c"})
	require.NoError(t, err)
	_, err = s.Rename(ctx, "a.txt", "box")
	require.ErrorIs(t, err, contents.ErrExists)
}

func TestStore_RenameDirectory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "docs/a.txt", contents.SaveOptions{Content: "a"})
	require.NoError(t, err)
	_, err = s.Save(ctx, "docs/sub/b.txt", contents.SaveOptions{Content: "b"})
	require.NoError(t, err)

	model, err := s.Rename(ctx, "docs", "archive")
	require.NoError(t, err)
	require.Equal(t, contents.TypeDirectory, model.Type)
	require.Equal(t, "archive", model.Path)

	got, err := s.Get(ctx, "archive/sub/b.txt", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "b", got.Content)

	_, err = s.Get(ctx, "docs/a.txt", contents.DefaultFetchOptions())
	require.ErrorIs(t, err, contents.ErrNotFound)
	_, err = s.List(ctx, "docs")
	require.ErrorIs(t, err, contents.ErrNotFound)

	listing, err := s.List(ctx, "archive")
	require.NoError(t, err)
	require.Len(t, listing, 2)
	require.Equal(t, "a.txt", listing[0].Name)
	require.Equal(t, "sub", listing[1].Name)

	_, err = s.Rename(ctx, "archive", "archive/inner")
	require.ErrorIs(t, err, contents.ErrInvalidPath)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "a.txt", contents.SaveOptions{Content: "a"})
	require.NoError(t, err)
	_, err = s.CreateCheckpoint(ctx, "a.txt")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "a.txt"))
	_, err = s.Get(ctx, "a.txt", contents.DefaultFetchOptions())
	require.ErrorIs(t, err, contents.ErrNotFound)

	// Checkpoints die with the file.
	_, err = s.Save(ctx, "a.txt", contents.SaveOptions{Content: "again"})
	require.NoError(t, err)
	cks, err := s.ListCheckpoints(ctx, "a.txt")
	require.NoError(t, err)
	require.Empty(t, cks)

	require.ErrorIs(t, s.Delete(ctx, "missing.txt"), contents.ErrNotFound)

	_, err = s.Save(ctx, "box/inner.txt", contents.SaveOptions{Content: "x"})
	require.NoError(t, err)
	err = s.Delete(ctx, "box")
	require.ErrorContains(t, err, "directory not empty")

	require.NoError(t, s.Delete(ctx, "box/inner.txt"))
	require.NoError(t, s.Delete(ctx, "box"))
	_, err = s.List(ctx, "box")
	require.ErrorIs(t, err, contents.ErrNotFound)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for p, body := range map[string]string{
		"work/beta.md":   "b",
		"work/alpha.txt": "a",
		"work/.secret":   "s",
		"work/sub/x.txt": "x",
		"top.txt":        "t",
	} {
		_, err := s.Save(ctx, p, contents.SaveOptions{Content: body})
		require.NoError(t, err)
	}

	listing, err := s.List(ctx, "work")
	require.NoError(t, err)
	require.Len(t, listing, 3)
	require.Equal(t, "alpha.txt", listing[0].Name)
	require.Equal(t, "beta.md", listing[1].Name)
	require.Equal(t, "sub", listing[2].Name)
	require.Equal(t, contents.TypeFile, listing[0].Type)
	require.Equal(t, contents.TypeDirectory, listing[2].Type)
	require.Empty(t, listing[0].Content)

	root, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, root, 2)
	require.Equal(t, "top.txt", root[0].Name)
	require.Equal(t, "work", root[1].Name)

	_, err = s.List(ctx, "nope")
	require.ErrorIs(t, err, contents.ErrNotFound)
}

func TestStore_Checkpoints(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "draft.md", contents.SaveOptions{Content: "v1"})
	require.NoError(t, err)

	ck1, err := s.CreateCheckpoint(ctx, "draft.md")
	require.NoError(t, err)
	require.NotEmpty(t, ck1.ID)
	require.False(t, ck1.LastModified.IsZero())

	time.Sleep(2 * time.Millisecond)
	_, err = s.Save(ctx, "draft.md", contents.SaveOptions{Content: "v2"})
	require.NoError(t, err)
	ck2, err := s.CreateCheckpoint(ctx, "draft.md")
	require.NoError(t, err)

	cks, err := s.ListCheckpoints(ctx, "draft.md")
	require.NoError(t, err)
	require.Len(t, cks, 2)
	require.Equal(t, ck1.ID, cks[0].ID)
	require.Equal(t, ck2.ID, cks[1].ID)

	require.NoError(t, s.RestoreCheckpoint(ctx, "draft.md", ck1.ID))
	model, err := s.Get(ctx, "draft.md", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "v1", model.Content)

	require.ErrorIs(t, s.RestoreCheckpoint(ctx, "draft.md", "no-such-id"),
		contents.ErrCheckpointNotFound)
	require.ErrorIs(t, s.RestoreCheckpoint(ctx, "missing.md", ck1.ID),
		contents.ErrNotFound)

	require.NoError(t, s.DeleteCheckpoint(ctx, "draft.md", ck1.ID))
	cks, err = s.ListCheckpoints(ctx, "draft.md")
	require.NoError(t, err)
	require.Len(t, cks, 1)
	require.ErrorIs(t, s.DeleteCheckpoint(ctx, "draft.md", ck1.ID),
		contents.ErrCheckpointNotFound)

	_, err = s.CreateCheckpoint(ctx, "missing.md")
	require.ErrorIs(t, err, contents.ErrNotFound)
}

func TestStore_PathNormalization(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Save(ctx, "notes/plan.md", contents.SaveOptions{Content: "# Plan"})
	require.NoError(t, err)

	model, err := s.Get(ctx, "./notes//plan.md", contents.DefaultFetchOptions())
	require.NoError(t, err)
	require.Equal(t, "notes/plan.md", model.Path)

	_, err = s.Save(ctx, "../evil.txt", contents.SaveOptions{Content: "x"})
	require.ErrorIs(t, err, contents.ErrInvalidPath)
}
