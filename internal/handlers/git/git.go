package git

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	gittransport "github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	xssh "golang.org/x/crypto/ssh"

	"github.com/jprybylski/reaction/internal/registry"
)

type handler struct{ cacheDir string }

func New() *handler             { return &handler{cacheDir: defaultCacheDir()} }
func (h *handler) Name() string { return "git" }

// Load reads source.path at source.ref from the repository at source.url.
// Repositories are kept as bare clones under the cache dir and refreshed on
// every load.
func (h *handler) Load(ctx context.Context, src registry.Source) (string, error) {
	repoURL, refName, filePath, err := parseGitSource(src)
	if err != nil {
		return "", err
	}

	repo, err := h.ensureRepo(ctx, repoURL)
	if err != nil {
		return "", err
	}

	_ = fetchAllRefs(ctx, repoURL, repo) // best-effort; a stale cache still resolves

	commit, err := resolveRefCommit(repo, refName)
	if err != nil {
		return "", err
	}

	r, err := blobForPathAtCommit(commit, filePath)
	if err != nil {
		return "", err
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// --- helpers ---

func parseGitSource(src registry.Source) (repoURL string, ref plumbing.ReferenceName, path string, err error) {
	if src.URL == "" || src.Path == "" || src.Ref == "" {
		return "", "", "", errors.New("git: require source.url, source.ref, source.path")
	}
	repoURL = src.URL
	if strings.HasPrefix(src.Ref, "refs/") {
		ref = plumbing.ReferenceName(src.Ref)
	} else {
		// Try branch first; resolveRefCommit will fall back to tag.
		ref = plumbing.NewBranchReferenceName(src.Ref)
	}
	path = filepath.ToSlash(src.Path)
	return repoURL, ref, path, nil
}

func (h *handler) ensureRepo(ctx context.Context, repoURL string) (*git.Repository, error) {
	dir := filepath.Join(h.cacheDir, "git", shortHash(repoURL))
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		repo, err := git.PlainInit(dir, true /* bare */)
		if err != nil {
			return nil, err
		}
		_, err = repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{repoURL}})
		if err != nil && !errors.Is(err, git.ErrRemoteExists) {
			return nil, err
		}
		if err := fetchAllRefs(ctx, repoURL, repo); err != nil && !isUpToDate(err) {
			// Leave no half-initialized cache behind for the next load.
			_ = os.RemoveAll(dir)
			return nil, err
		}
		return repo, nil
	}
	return git.PlainOpen(dir)
}

// cacheRefSpecs is what a refresh pulls into the bare cache: branches land
// as origin remote-tracking refs, tags keep their own names.
var cacheRefSpecs = []struct {
	spec config.RefSpec
	tags git.TagMode
}{
	{spec: "+refs/heads/*:refs/remotes/origin/*", tags: git.NoTags},
	{spec: "+refs/tags/*:refs/tags/*", tags: git.AllTags},
}

// fetchAllRefs refreshes the cache. Every refspec is attempted; the first
// failure is returned.
func fetchAllRefs(ctx context.Context, repoURL string, repo *git.Repository) error {
	auth := gitAuth(repoURL)
	var firstErr error
	for _, rs := range cacheRefSpecs {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			RemoteName: "origin",
			Auth:       auth,
			RefSpecs:   []config.RefSpec{rs.spec},
			Depth:      1,
			Tags:       rs.tags,
			Force:      true,
		})
		if !isUpToDate(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// candidateRefs lists where a requested ref can live in a bare cache. A
// branch name may really be a tag, so tags are the last resort.
func candidateRefs(name plumbing.ReferenceName) []plumbing.ReferenceName {
	if !name.IsBranch() {
		return []plumbing.ReferenceName{name}
	}
	short := name.Short()
	return []plumbing.ReferenceName{
		name,
		plumbing.NewRemoteReferenceName("origin", short),
		plumbing.NewTagReferenceName(short),
	}
}

func resolveRefCommit(repo *git.Repository, name plumbing.ReferenceName) (*object.Commit, error) {
	for _, candidate := range candidateRefs(name) {
		ref, err := repo.Reference(candidate, true)
		if err != nil {
			continue
		}
		hash := ref.Hash()
		// Annotated tags, possibly nested, point at tag objects.
		for {
			tag, err := repo.TagObject(hash)
			if err != nil {
				break
			}
			hash = tag.Target
		}
		return repo.CommitObject(hash)
	}
	return nil, fmt.Errorf("git: cannot resolve ref %q", name)
}

func blobForPathAtCommit(commit *object.Commit, filePath string) (io.ReadCloser, error) {
	t, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	f, err := t.File(filePath)
	if err != nil {
		return nil, fmt.Errorf("git: file %q not found at %s", filePath, commit.Hash.String())
	}
	return f.Blob.Reader()
}

func defaultCacheDir() string {
	if v := os.Getenv("XDG_CACHE_HOME"); v != "" {
		return filepath.Join(v, "reaction")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "reaction")
}

func shortHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}

func isUpToDate(err error) bool {
	return err == nil || errors.Is(err, git.NoErrAlreadyUpToDate)
}

// gitAuth picks credentials for repoURL from the environment:
//   - http(s): GIT_TOKEN, else GIT_USERNAME/GIT_PASSWORD, else anonymous
//   - local paths and file:// URLs: none
//   - anything else is SSH: the ssh-agent, else GIT_SSH_KEY (GIT_SSH_PASSPHRASE)
//
// SSH host keys are not verified.
func gitAuth(repoURL string) gittransport.AuthMethod {
	u, err := url.Parse(repoURL)
	if err == nil {
		switch {
		case u.Scheme == "http" || u.Scheme == "https":
			return httpAuth()
		case u.Scheme == "file", u.Scheme == "" && !strings.Contains(repoURL, "@"):
			return nil
		}
	}
	return sshAuth(sshUser(repoURL, u))
}

func httpAuth() gittransport.AuthMethod {
	if token := os.Getenv("GIT_TOKEN"); token != "" {
		return &githttp.BasicAuth{Username: "x-access-token", Password: token}
	}
	user, pass := os.Getenv("GIT_USERNAME"), os.Getenv("GIT_PASSWORD")
	if user == "" && pass == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: user, Password: pass}
}

// sshUser takes the user from an ssh:// URL or from scp-style user@host:path,
// which does not parse as a URL. It defaults to "git".
func sshUser(repoURL string, u *url.URL) string {
	if u != nil && u.User != nil && u.User.Username() != "" {
		return u.User.Username()
	}
	if u == nil {
		if user, _, ok := strings.Cut(repoURL, "@"); ok && user != "" && !strings.ContainsAny(user, ":/") {
			return user
		}
	}
	return "git"
}

func sshAuth(user string) gittransport.AuthMethod {
	if agent, err := gitssh.NewSSHAgentAuth(user); err == nil {
		agent.HostKeyCallback = xssh.InsecureIgnoreHostKey()
		return agent
	}
	key := os.Getenv("GIT_SSH_KEY")
	if key == "" {
		return nil
	}
	keys, err := gitssh.NewPublicKeysFromFile(user, key, os.Getenv("GIT_SSH_PASSPHRASE"))
	if err != nil {
		return nil
	}
	keys.HostKeyCallback = xssh.InsecureIgnoreHostKey()
	return keys
}
