package system

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLinkHops bounds symlink resolution in MockFS.Stat.
const maxLinkHops = 40

// MockFS implements FileSystem for testing. Paths are treated as clean,
// slash-separated absolute paths.
type MockFS struct {
	mu    sync.RWMutex
	files map[string]*mockFile
	dirs  map[string]bool
	links map[string]string

	// Error injection
	StatErr     error
	ReadDirErr  error
	MkdirAllErr error
	SymlinkErr  error
	RenameErr   error
	RemoveErr   error

	// RemoveErrs injects errors for specific paths passed to Remove.
	RemoveErrs map[string]error
}

type mockFile struct {
	data []byte
	mode fs.FileMode
}

// NewMockFS creates a new MockFS with an empty filesystem.
func NewMockFS() *MockFS {
	return &MockFS{
		files:      make(map[string]*mockFile),
		dirs:       make(map[string]bool),
		links:      make(map[string]string),
		RemoveErrs: make(map[string]error),
	}
}

// AddFile adds a file to the mock filesystem.
func (m *MockFS) AddFile(path string, data []byte, mode fs.FileMode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = &mockFile{data: data, mode: mode}
	m.addParents(path)
}

// AddDir adds a directory to the mock filesystem.
func (m *MockFS) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[path] = true
	m.addParents(path)
}

// AddSymlink adds a symbolic link at path pointing to target.
func (m *MockFS) AddSymlink(target, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[path] = target
	m.addParents(path)
}

func (m *MockFS) addParents(path string) {
	dir := filepath.Dir(path)
	for dir != "." && dir != "/" {
		m.dirs[dir] = true
		dir = filepath.Dir(dir)
	}
}

// LinkTarget returns the target of a symlink in the mock filesystem.
func (m *MockFS) LinkTarget(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.links[path]
	return target, ok
}

func (m *MockFS) Stat(path string) (fs.FileInfo, error) {
	if m.StatErr != nil {
		return nil, m.StatErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	current := path
	for range maxLinkHops {
		target, ok := m.links[current]
		if !ok {
			return m.lstatLocked(current)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(current), target)
		}
		current = target
	}
	return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrInvalid}
}

func (m *MockFS) Lstat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lstatLocked(path)
}

func (m *MockFS) lstatLocked(path string) (fs.FileInfo, error) {
	if f, ok := m.files[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), size: int64(len(f.data)), mode: f.mode}, nil
	}
	if _, ok := m.links[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), mode: fs.ModeSymlink | 0777}, nil
	}
	if _, ok := m.dirs[path]; ok {
		return &mockFileInfo{name: filepath.Base(path), isDir: true, mode: fs.ModeDir | 0755}, nil
	}
	return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFS) Readlink(path string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	target, ok := m.links[path]
	if !ok {
		return "", &fs.PathError{Op: "readlink", Path: path, Err: fs.ErrInvalid}
	}
	return target, nil
}

func (m *MockFS) Symlink(oldname, newname string) error {
	if m.SymlinkErr != nil {
		return m.SymlinkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsLocked(newname) {
		return &fs.PathError{Op: "symlink", Path: newname, Err: fs.ErrExist}
	}
	m.links[newname] = oldname
	return nil
}

func (m *MockFS) Rename(oldpath, newpath string) error {
	if m.RenameErr != nil {
		return m.RenameErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if target, ok := m.links[oldpath]; ok {
		delete(m.links, oldpath)
		delete(m.files, newpath)
		m.links[newpath] = target
		return nil
	}
	if f, ok := m.files[oldpath]; ok {
		delete(m.files, oldpath)
		delete(m.links, newpath)
		m.files[newpath] = f
		return nil
	}
	return &fs.PathError{Op: "rename", Path: oldpath, Err: fs.ErrNotExist}
}

func (m *MockFS) Remove(path string) error {
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	if err, ok := m.RemoveErrs[path]; ok {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[path]; ok {
		delete(m.links, path)
		return nil
	}
	if _, ok := m.files[path]; ok {
		delete(m.files, path)
		return nil
	}
	if _, ok := m.dirs[path]; ok {
		delete(m.dirs, path)
		return nil
	}
	return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
}

func (m *MockFS) RemoveAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.files {
		if p == path || hasPathPrefix(p, path) {
			delete(m.files, p)
		}
	}
	for p := range m.links {
		if p == path || hasPathPrefix(p, path) {
			delete(m.links, p)
		}
	}
	for p := range m.dirs {
		if p == path || hasPathPrefix(p, path) {
			delete(m.dirs, p)
		}
	}
	return nil
}

func (m *MockFS) MkdirAll(path string, perm fs.FileMode) error {
	if m.MkdirAllErr != nil {
		return m.MkdirAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current := path
	for current != "." && current != "/" {
		m.dirs[current] = true
		current = filepath.Dir(current)
	}
	return nil
}

func (m *MockFS) ReadDir(path string) ([]fs.DirEntry, error) {
	if m.ReadDirErr != nil {
		return nil, m.ReadDirErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.dirs[path]; !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}

	var result []fs.DirEntry
	for p, f := range m.files {
		if filepath.Dir(p) == path {
			result = append(result, &mockDirEntry{name: filepath.Base(p), mode: f.mode})
		}
	}
	for p := range m.links {
		if filepath.Dir(p) == path {
			result = append(result, &mockDirEntry{name: filepath.Base(p), mode: fs.ModeSymlink | 0777})
		}
	}
	for p := range m.dirs {
		if filepath.Dir(p) == path {
			result = append(result, &mockDirEntry{name: filepath.Base(p), isDir: true, mode: fs.ModeDir | 0755})
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result, nil
}

func (m *MockFS) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.existsLocked(path)
}

func (m *MockFS) existsLocked(path string) bool {
	_, fileOk := m.files[path]
	_, dirOk := m.dirs[path]
	_, linkOk := m.links[path]
	return fileOk || dirOk || linkOk
}

// hasPathPrefix checks if path has the given prefix as a path component.
func hasPathPrefix(path, prefix string) bool {
	if len(path) <= len(prefix) {
		return false
	}
	return path[:len(prefix)] == prefix && path[len(prefix)] == '/'
}

// mockFileInfo implements fs.FileInfo for testing.
type mockFileInfo struct {
	name  string
	size  int64
	mode  fs.FileMode
	isDir bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return time.Now() }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry implements fs.DirEntry for testing.
type mockDirEntry struct {
	name  string
	mode  fs.FileMode
	isDir bool
}

func (m *mockDirEntry) Name() string      { return m.name }
func (m *mockDirEntry) IsDir() bool       { return m.isDir }
func (m *mockDirEntry) Type() fs.FileMode { return m.mode.Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: m.name, mode: m.mode, isDir: m.isDir}, nil
}

// MockExecutor implements CommandExecutor for testing.
type MockExecutor struct {
	mu sync.Mutex

	// Commands records all executed commands for verification.
	Commands []MockCommand

	// Responses maps command-line prefixes to responses.
	// Key format: "command arg1 arg2..."; the longest matching prefix wins.
	Responses map[string]MockResponse

	// DirResponses holds responses that only apply in a given directory.
	DirResponses map[string]map[string]MockResponse

	// DefaultResponse is used when no matching response is found.
	DefaultResponse MockResponse
}

// MockCommand records an executed command.
type MockCommand struct {
	Dir  string
	Name string
	Args []string
}

// Line returns the command line without the directory.
func (c MockCommand) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// MockResponse defines the response for a command.
type MockResponse struct {
	Output []byte
	Err    error
}

// NewMockExecutor creates a new MockExecutor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		Commands:     make([]MockCommand, 0),
		Responses:    make(map[string]MockResponse),
		DirResponses: make(map[string]map[string]MockResponse),
	}
}

// AddResponse adds a response for a command-line prefix.
func (m *MockExecutor) AddResponse(pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = MockResponse{Output: output, Err: err}
}

// AddDirResponse adds a response for a command-line prefix run in dir.
func (m *MockExecutor) AddDirResponse(dir, pattern string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DirResponses[dir] == nil {
		m.DirResponses[dir] = make(map[string]MockResponse)
	}
	m.DirResponses[dir][pattern] = MockResponse{Output: output, Err: err}
}

func (m *MockExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	return m.ExecuteInDir(ctx, "", name, args...)
}

func (m *MockExecutor) ExecuteInDir(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cmd := MockCommand{Dir: dir, Name: name, Args: args}
	m.Commands = append(m.Commands, cmd)

	line := cmd.Line()
	if resp, ok := longestPrefix(m.DirResponses[dir], line); ok {
		return resp.Output, resp.Err
	}
	if resp, ok := longestPrefix(m.Responses, line); ok {
		return resp.Output, resp.Err
	}
	return m.DefaultResponse.Output, m.DefaultResponse.Err
}

func longestPrefix(responses map[string]MockResponse, line string) (MockResponse, bool) {
	best := -1
	var found MockResponse
	for pattern, resp := range responses {
		if line != pattern && !strings.HasPrefix(line, pattern+" ") {
			continue
		}
		if len(pattern) > best {
			best = len(pattern)
			found = resp
		}
	}
	return found, best >= 0
}

// LastCommand returns the most recently executed command.
func (m *MockExecutor) LastCommand() (MockCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return MockCommand{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// Ran reports whether a command line starting with prefix was executed.
func (m *MockExecutor) Ran(prefix string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Commands {
		line := c.Line()
		if line == prefix || strings.HasPrefix(line, prefix+" ") {
			return true
		}
	}
	return false
}
