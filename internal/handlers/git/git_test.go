package git

import (
	"context"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/jprybylski/reaction/internal/registry"
)

func TestHandler_Name(t *testing.T) {
	if got := New().Name(); got != "git" {
		t.Errorf("Name() = %v, want git", got)
	}
}

func TestParseGitSource(t *testing.T) {
	tests := []struct {
		name    string
		src     registry.Source
		wantRef plumbing.ReferenceName
		wantErr bool
	}{
		{
			name:    "branch name",
			src:     registry.Source{URL: "https://example.com/r.git", Ref: "main", Path: "ci/timeout.sh"},
			wantRef: "refs/heads/main",
		},
		{
			name:    "full ref",
			src:     registry.Source{URL: "https://example.com/r.git", Ref: "refs/tags/v1", Path: "ci/timeout.sh"},
			wantRef: "refs/tags/v1",
		},
		{name: "missing url", src: registry.Source{Ref: "main", Path: "a.sh"}, wantErr: true},
		{name: "missing ref", src: registry.Source{URL: "u", Path: "a.sh"}, wantErr: true},
		{name: "missing path", src: registry.Source{URL: "u", Ref: "main"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ref, path, err := parseGitSource(tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseGitSource() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if ref != tt.wantRef {
				t.Errorf("ref = %q, want %q", ref, tt.wantRef)
			}
			if path != filepath.ToSlash(tt.src.Path) {
				t.Errorf("path = %q, want %q", path, tt.src.Path)
			}
		})
	}
}

func TestHandler_LoadValidation(t *testing.T) {
	h := &handler{cacheDir: t.TempDir()}
	if _, err := h.Load(context.Background(), registry.Source{URL: "https://example.com/r.git"}); err == nil {
		t.Error("Load() expected error for incomplete source, got nil")
	}
}

// commitScript builds an in-memory repository with one commit holding path.
func commitScript(t *testing.T, path, body string) (*git.Repository, plumbing.Hash) {
	t.Helper()
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := io.WriteString(f, body); err != nil {
		t.Fatalf("write error = %v", err)
	}
	f.Close()

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree() error = %v", err)
	}
	if _, err := wt.Add(path); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	hash, err := wt.Commit("add timeout script", &git.CommitOptions{
		Author: &object.Signature{Name: "ci", Email: "ci@example.com", When: time.Unix(0, 0)},
	})
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return repo, hash
}

func TestResolveAndReadBlob(t *testing.T) {
	body := "echo from git\n"
	repo, hash := commitScript(t, "ci/timeout.sh", body)

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head() error = %v", err)
	}

	t.Run("branch", func(t *testing.T) {
		commit, err := resolveRefCommit(repo, head.Name())
		if err != nil {
			t.Fatalf("resolveRefCommit() error = %v", err)
		}
		if commit.Hash != hash {
			t.Errorf("commit = %s, want %s", commit.Hash, hash)
		}

		r, err := blobForPathAtCommit(commit, "ci/timeout.sh")
		if err != nil {
			t.Fatalf("blobForPathAtCommit() error = %v", err)
		}
		defer r.Close()
		got, _ := io.ReadAll(r)
		if string(got) != body {
			t.Errorf("blob = %q, want %q", got, body)
		}
	})

	t.Run("tag fallback", func(t *testing.T) {
		if _, err := repo.CreateTag("v1", hash, nil); err != nil {
			t.Fatalf("CreateTag() error = %v", err)
		}
		commit, err := resolveRefCommit(repo, plumbing.NewBranchReferenceName("v1"))
		if err != nil {
			t.Fatalf("resolveRefCommit() error = %v", err)
		}
		if commit.Hash != hash {
			t.Errorf("commit = %s, want %s", commit.Hash, hash)
		}
	})

	t.Run("unknown ref", func(t *testing.T) {
		_, err := resolveRefCommit(repo, plumbing.NewBranchReferenceName("nope"))
		if err == nil || !strings.Contains(err.Error(), "cannot resolve") {
			t.Errorf("resolveRefCommit() error = %v, want cannot resolve", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		commit, _ := resolveRefCommit(repo, head.Name())
		if _, err := blobForPathAtCommit(commit, "nope.sh"); err == nil {
			t.Error("blobForPathAtCommit() expected error for missing file, got nil")
		}
	})
}

func TestSSHUser(t *testing.T) {
	tests := []struct {
		repoURL string
		want    string
	}{
		{repoURL: "ssh://deploy@example.com/ci.git", want: "deploy"},
		{repoURL: "ssh://example.com/ci.git", want: "git"},
		{repoURL: "builder@example.com:ci/scripts.git", want: "builder"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.repoURL)
		if err != nil {
			u = nil
		}
		if got := sshUser(tt.repoURL, u); got != tt.want {
			t.Errorf("sshUser(%q) = %q, want %q", tt.repoURL, got, tt.want)
		}
	}
}

func TestCandidateRefs(t *testing.T) {
	got := candidateRefs(plumbing.NewBranchReferenceName("release/1"))
	want := []plumbing.ReferenceName{
		"refs/heads/release/1",
		"refs/remotes/origin/release/1",
		"refs/tags/release/1",
	}
	if len(got) != len(want) {
		t.Fatalf("candidateRefs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidateRefs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if got := candidateRefs("refs/tags/v1"); len(got) != 1 || got[0] != "refs/tags/v1" {
		t.Errorf("candidateRefs(tag) = %v, want [refs/tags/v1]", got)
	}
}

func TestGitAuth(t *testing.T) {
	t.Setenv("GIT_USERNAME", "")
	t.Setenv("GIT_PASSWORD", "")

	t.Run("https token", func(t *testing.T) {
		t.Setenv("GIT_TOKEN", "secret")
		if auth := gitAuth("https://example.com/r.git"); auth == nil {
			t.Error("gitAuth() = nil, want basic auth")
		}
	})

	t.Run("https anonymous", func(t *testing.T) {
		t.Setenv("GIT_TOKEN", "")
		if auth := gitAuth("https://example.com/r.git"); auth != nil {
			t.Errorf("gitAuth() = %v, want nil", auth)
		}
	})

	t.Run("https username and password", func(t *testing.T) {
		t.Setenv("GIT_TOKEN", "")
		t.Setenv("GIT_USERNAME", "ci")
		t.Setenv("GIT_PASSWORD", "pw")
		auth, ok := gitAuth("https://example.com/r.git").(*githttp.BasicAuth)
		if !ok || auth.Username != "ci" || auth.Password != "pw" {
			t.Errorf("gitAuth() = %v, want basic auth for ci", auth)
		}
	})

	t.Run("file url", func(t *testing.T) {
		if auth := gitAuth("file:///srv/git/scripts.git"); auth != nil {
			t.Errorf("gitAuth() = %v, want nil", auth)
		}
	})

	t.Run("local path", func(t *testing.T) {
		if auth := gitAuth("/srv/git/scripts.git"); auth != nil {
			t.Errorf("gitAuth() = %v, want nil", auth)
		}
	})
}
