package fsbind

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

func TestReadWriteCopyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")

	require.NoError(t, WriteFileSync(src, []byte("hello world")))

	data, err := ReadFileSync(src)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(data))

	require.NoError(t, CopyFileSync(src, dst))
	copied, err := ReadFileSync(dst)
	require.NoError(t, err)
	require.Equal(t, data, copied)
}

func TestStatSyncReportsDirectory(t *testing.T) {
	dir := t.TempDir()
	st, err := StatSync(dir)
	require.NoError(t, err)
	require.True(t, st.IsDir)
}

func TestReadFileSyncMissingFileIsENOENT(t *testing.T) {
	_, err := ReadFileSync("/nonexistent/path/does/not/exist.txt")
	require.Error(t, err)
	jsErr, ok := err.(*core.JSError)
	require.True(t, ok)
	require.Equal(t, "ENOENT", jsErr.Code)
}

func TestMkdirRmdirSync(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "child")

	require.NoError(t, MkdirSync(target, true))
	st, err := StatSync(target)
	require.NoError(t, err)
	require.True(t, st.IsDir)

	require.NoError(t, RmdirSync(target, false))
	_, err = StatSync(target)
	require.Error(t, err)
}

func TestAsyncReadPostsCompletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "async.txt")
	require.NoError(t, os.WriteFile(path, []byte("async-data"), 0o644))

	registry := core.NewRegistry()
	q := ioqueue.New(4)
	pool := NewPool(2, q, registry)

	pool.ReadFileAsync(77, path)

	var got ioqueue.Completion
	ok := q.WaitOne(time.Now().Add(2*time.Second), func(c ioqueue.Completion) { got = c })
	require.True(t, ok)
	require.Equal(t, int64(77), got.HandleID)
	require.NoError(t, got.Err)
	require.Equal(t, []byte("async-data"), got.Result)
}
