// Package fsbind implements the §4.I filesystem bindings: synchronous
// open/read/write/stat/mkdir/rmdir/copy, plus a File handle supporting
// read/write/close. Async variants exist only for stat, readFile and
// writeFile; the other operations have no async form.
//
// Sync variants run directly on the loop thread (local-disk ops are
// assumed fast, matching "a binding either returns synchronously or
// schedules work", §4). Async variants dispatch to a bounded worker
// pool (§5's "small thread pool... completions delivered to the loop
// thread"), posting results on the same completion queue the TCP/DNS
// subsystems use. DNS lookups do not run on this pool.
package fsbind

import (
	"io"
	"os"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

// Pool is a small bounded worker pool for blocking filesystem syscalls.
type Pool struct {
	jobs        chan func()
	completions *ioqueue.Queue
	registry    *core.Registry
}

// NewPool starts size worker goroutines draining jobs.
func NewPool(size int, completions *ioqueue.Queue, registry *core.Registry) *Pool {
	if size <= 0 {
		size = 4
	}
	p := &Pool{jobs: make(chan func(), 64), completions: completions, registry: registry}
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	for job := range p.jobs {
		job()
	}
}

func (p *Pool) submit(job func()) {
	p.jobs <- job
}

// StatResult mirrors the subset of os.FileInfo exposed to JS.
type StatResult struct {
	Size    int64
	Mode    uint32
	ModTime int64 // unix nanos
	IsDir   bool
}

func toStatResult(fi os.FileInfo) StatResult {
	return StatResult{
		Size:    fi.Size(),
		Mode:    uint32(fi.Mode()),
		ModTime: fi.ModTime().UnixNano(),
		IsDir:   fi.IsDir(),
	}
}

// StatSync stats path synchronously.
func StatSync(path string) (StatResult, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return StatResult{}, translateFSErr(err, path)
	}
	return toStatResult(fi), nil
}

// StatAsync stats path on the worker pool, posting the result against
// handleID.
func (p *Pool) StatAsync(handleID int64, path string) {
	p.submit(func() {
		res, err := StatSync(path)
		p.completions.Post(ioqueue.Completion{HandleID: handleID, Result: res, Err: err})
	})
}

// ReadFileSync reads the entire file at path synchronously.
func ReadFileSync(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, translateFSErr(err, path)
	}
	return b, nil
}

// ReadFileAsync reads path on the worker pool.
func (p *Pool) ReadFileAsync(handleID int64, path string) {
	p.submit(func() {
		b, err := ReadFileSync(path)
		p.completions.Post(ioqueue.Completion{HandleID: handleID, Result: b, Err: err})
	})
}

// WriteFileSync writes data to path synchronously, creating or
// truncating it (mode 0644, matching Node's fs.writeFile default).
func WriteFileSync(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return translateFSErr(err, path)
	}
	return nil
}

// WriteFileAsync writes on the worker pool.
func (p *Pool) WriteFileAsync(handleID int64, path string, data []byte) {
	p.submit(func() {
		err := WriteFileSync(path, data)
		p.completions.Post(ioqueue.Completion{HandleID: handleID, Err: err})
	})
}

// MkdirSync creates path, and its parents if recursive is set.
func MkdirSync(path string, recursive bool) error {
	var err error
	if recursive {
		err = os.MkdirAll(path, 0o755)
	} else {
		err = os.Mkdir(path, 0o755)
	}
	if err != nil {
		return translateFSErr(err, path)
	}
	return nil
}

// RmdirSync removes the (empty, unless recursive) directory at path.
func RmdirSync(path string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return translateFSErr(err, path)
	}
	return nil
}

// CopyFileSync copies src to dst, overwriting dst.
func CopyFileSync(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return translateFSErr(err, src)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return translateFSErr(err, dst)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return translateFSErr(err, dst)
	}
	return out.Close()
}

// File wraps an *os.File with registry-backed identity, implementing the
// §6.2 "File object supporting read, write, close, iteration" surface at
// the Go binding layer. No binding exposes Open or File to JS, so there
// is no JS-side File object or iteration over it.
type File struct {
	f    *os.File
	Path string
}

// Open opens path with the given flags (interpreted the same as Go's
// os.OpenFile flags, which JS-side fs.open translates from string modes).
func Open(path string, flag int, perm os.FileMode) (*File, error) {
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, translateFSErr(err, path)
	}
	return &File{f: f, Path: path}, nil
}

func (fl *File) Read(p []byte) (int, error) { return fl.f.Read(p) }
func (fl *File) Write(p []byte) (int, error) { return fl.f.Write(p) }
func (fl *File) Close() error                { return fl.f.Close() }
func (fl *File) Fd() int                     { return int(fl.f.Fd()) }

func translateFSErr(err error, path string) error {
	if os.IsNotExist(err) {
		return core.ErrNotFound(path)
	}
	if os.IsPermission(err) {
		return core.ErrAccessDenied(path)
	}
	return core.Wrap(core.ErrResource, "", err)
}
