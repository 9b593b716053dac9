package system

import (
	"context"
	"errors"
	"io/fs"
	"testing"
)

func TestMockFS_Lstat(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/bin/tool", []byte("#!/bin/sh"), 0755)
	mockFS.AddSymlink("/bin/tool", "/links/tool-42")
	mockFS.AddDir("/test/dir")

	info, err := mockFS.Lstat("/links/tool-42")
	if err != nil {
		t.Fatalf("Lstat link error: %v", err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		t.Error("Lstat should report a symlink")
	}

	info, err = mockFS.Lstat("/test/dir")
	if err != nil {
		t.Fatalf("Lstat dir error: %v", err)
	}
	if !info.IsDir() {
		t.Error("Dir should be a directory")
	}

	if _, err := mockFS.Lstat("/nonexistent"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Lstat error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_StatFollowsLinks(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/ws/dist/cli", []byte("x"), 0755)
	mockFS.AddSymlink("/ws/dist/cli", "/bin/cli-1")
	mockFS.AddSymlink("cli-1", "/bin/cli-alias")
	mockFS.AddSymlink("/ws/gone", "/bin/broken-1")

	info, err := mockFS.Stat("/bin/cli-alias")
	if err != nil {
		t.Fatalf("Stat through relative link chain: %v", err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("Mode = %v, want 0755", info.Mode().Perm())
	}

	if _, err := mockFS.Stat("/bin/broken-1"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Stat on broken link error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_SymlinkAndRename(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddDir("/bin")

	if err := mockFS.Symlink("/ws/a", "/bin/.tmp"); err != nil {
		t.Fatalf("Symlink error: %v", err)
	}
	if err := mockFS.Symlink("/ws/b", "/bin/.tmp"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second Symlink error = %v, want fs.ErrExist", err)
	}
	if err := mockFS.Rename("/bin/.tmp", "/bin/a-1"); err != nil {
		t.Fatalf("Rename error: %v", err)
	}

	target, ok := mockFS.LinkTarget("/bin/a-1")
	if !ok || target != "/ws/a" {
		t.Errorf("LinkTarget = %q, %v; want /ws/a, true", target, ok)
	}
	if mockFS.Exists("/bin/.tmp") {
		t.Error("temporary link should be gone after rename")
	}
}

func TestMockFS_Remove(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/file.txt", []byte("x"), 0644)

	if err := mockFS.Remove("/file.txt"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if mockFS.Exists("/file.txt") {
		t.Error("File should be removed")
	}
	if err := mockFS.Remove("/file.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("second Remove error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_RemoveErrs(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddSymlink("/ws/a", "/bin/a-1")
	mockFS.AddSymlink("/ws/b", "/bin/b-1")
	mockFS.RemoveErrs["/bin/a-1"] = fs.ErrPermission

	if err := mockFS.Remove("/bin/a-1"); !errors.Is(err, fs.ErrPermission) {
		t.Errorf("Remove error = %v, want ErrPermission", err)
	}
	if err := mockFS.Remove("/bin/b-1"); err != nil {
		t.Errorf("Remove of uninjected path error = %v", err)
	}
}

func TestMockFS_RemoveAll(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/dir/file1.txt", []byte("x"), 0644)
	mockFS.AddSymlink("/elsewhere", "/dir/link")
	mockFS.AddDir("/dir/subdir")

	if err := mockFS.RemoveAll("/dir"); err != nil {
		t.Fatalf("RemoveAll error: %v", err)
	}

	for _, p := range []string{"/dir", "/dir/file1.txt", "/dir/link", "/dir/subdir"} {
		if mockFS.Exists(p) {
			t.Errorf("%s should be removed", p)
		}
	}
}

func TestMockFS_ReadDir(t *testing.T) {
	mockFS := NewMockFS()
	mockFS.AddFile("/bin/plain", []byte("x"), 0755)
	mockFS.AddSymlink("/ws/tool", "/bin/tool-1")
	mockFS.AddDir("/bin/sub")

	entries, err := mockFS.ReadDir("/bin")
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}

	want := []struct {
		name string
		link bool
	}{
		{"plain", false},
		{"sub", false},
		{"tool-1", true},
	}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i, w := range want {
		if entries[i].Name() != w.name {
			t.Errorf("entry %d = %q, want %q", i, entries[i].Name(), w.name)
		}
		if (entries[i].Type()&fs.ModeSymlink != 0) != w.link {
			t.Errorf("entry %q symlink = %v, want %v", w.name, !w.link, w.link)
		}
	}

	if _, err := mockFS.ReadDir("/missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("ReadDir missing error = %v, want fs.ErrNotExist", err)
	}
}

func TestMockFS_MkdirAll(t *testing.T) {
	mockFS := NewMockFS()

	if err := mockFS.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}

	for _, p := range []string{"/a", "/a/b", "/a/b/c"} {
		info, err := mockFS.Lstat(p)
		if err != nil || !info.IsDir() {
			t.Errorf("%s should be a directory", p)
		}
	}
}

func TestMockExecutor_LongestPrefix(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("git", []byte("generic"), nil)
	exec.AddResponse("git worktree list", []byte("listing"), nil)

	output, err := exec.Execute(context.Background(), "git", "worktree", "list", "--porcelain")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if string(output) != "listing" {
		t.Errorf("Output = %q, want %q", output, "listing")
	}

	output, _ = exec.Execute(context.Background(), "git", "status")
	if string(output) != "generic" {
		t.Errorf("Output = %q, want %q", output, "generic")
	}

	// "git worktree listing" must not match the "git worktree list" prefix
	output, _ = exec.Execute(context.Background(), "git", "worktree", "listing")
	if string(output) != "generic" {
		t.Errorf("Output = %q, want %q", output, "generic")
	}
}

func TestMockExecutor_DirResponses(t *testing.T) {
	exec := NewMockExecutor()
	exec.AddResponse("git status", []byte(""), nil)
	exec.AddDirResponse("/ws/dirty", "git status", []byte(" M file.go\n"), nil)

	output, _ := exec.ExecuteInDir(context.Background(), "/ws/dirty", "git", "status", "--porcelain")
	if string(output) != " M file.go\n" {
		t.Errorf("dirty output = %q", output)
	}
	output, _ = exec.ExecuteInDir(context.Background(), "/ws/clean", "git", "status", "--porcelain")
	if string(output) != "" {
		t.Errorf("clean output = %q", output)
	}

	cmd, ok := exec.LastCommand()
	if !ok {
		t.Fatal("No command recorded")
	}
	if cmd.Dir != "/ws/clean" {
		t.Errorf("Dir = %q, want /ws/clean", cmd.Dir)
	}
	if !exec.Ran("git status") {
		t.Error("Ran should report git status")
	}
	if exec.Ran("git branch") {
		t.Error("Ran should not report commands that did not run")
	}
}

func TestMockExecutor_DefaultResponse(t *testing.T) {
	exec := NewMockExecutor()
	exec.DefaultResponse = MockResponse{Output: []byte("default"), Err: nil}

	output, err := exec.Execute(context.Background(), "unknown", "command")
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if string(output) != "default" {
		t.Errorf("Output = %q, want %q", string(output), "default")
	}
}
