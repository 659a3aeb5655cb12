package ps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/cache"
	"github.com/go-git/go-git/v6/plumbing/filemode"
	"github.com/go-git/go-git/v6/plumbing/object"
	"github.com/go-git/go-git/v6/storage/filesystem"
	"github.com/go-git/go-git/v6/storage/memory"
	"github.com/nickyhof/TableDB/core"
)

// GitBackend keeps documents in a Git repository. Every write is a commit,
// so the full history of each table can be listed and read back.
type GitBackend struct {
	repo         *git.Repository
	root         string
	identity     core.Identity
	isMemoryMode bool
	mu           sync.RWMutex
}

// NewMemoryGitBackend creates a repository held entirely in memory.
func NewMemoryGitBackend(identity core.Identity) (*GitBackend, error) {
	repo, err := git.Init(memory.NewStorage(), git.WithWorkTree(memfs.New()))
	if err != nil {
		return nil, err
	}

	return &GitBackend{
		repo:         repo,
		identity:     identity,
		isMemoryMode: true,
	}, nil
}

// NewGitBackend opens the repository at root, initializing it if needed.
// Committed documents are checked out into root after every write.
func NewGitBackend(root string, identity core.Identity) (*GitBackend, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}

	wt := osfs.New(root)
	dotGit, err := wt.Chroot(".git")
	if err != nil {
		return nil, err
	}

	storer := filesystem.NewStorageWithOptions(
		dotGit,
		cache.NewObjectLRUDefault(),
		filesystem.Options{ExclusiveAccess: true})

	var repo *git.Repository
	if _, statErr := os.Stat(filepath.Join(root, ".git")); statErr != nil {
		repo, err = git.Init(storer, git.WithWorkTree(wt))
	} else {
		repo, err = git.Open(storer, wt)
	}
	if err != nil {
		return nil, err
	}

	return &GitBackend{
		repo:     repo,
		root:     root,
		identity: identity,
	}, nil
}

func (g *GitBackend) Location(name string) string {
	if g.root == "" {
		return name
	}
	return filepath.Join(g.root, name)
}

func (g *GitBackend) Read(name string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tree, err := g.headTree()
	if err != nil {
		return nil, err
	}
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
	}
	return readTreeFile(tree, name)
}

func (g *GitBackend) Exists(name string) (bool, error) {
	_, err := g.Read(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Write commits data as the new content of name.
func (g *GitBackend) Write(name string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	currentTree, err := g.getCurrentTree()
	if err != nil {
		return err
	}

	blobHash, err := g.createBlob(data)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}

	newTree, err := g.setTreeEntry(currentTree, name, blobHash)
	if err != nil {
		return fmt.Errorf("failed to update tree: %w", err)
	}

	if _, err := g.createCommitDirect(newTree, fmt.Sprintf("Persisting %s", name)); err != nil {
		return err
	}

	if err := g.syncWorktree(); err != nil {
		return fmt.Errorf("failed to sync worktree: %w", err)
	}

	return nil
}

func (g *GitBackend) List() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	tree, err := g.headTree()
	if err != nil || tree == nil {
		return nil, err
	}

	var names []string
	for _, entry := range tree.Entries {
		if entry.Mode != filemode.Dir {
			names = append(names, entry.Name)
		}
	}
	sort.Strings(names)

	return names, nil
}

// head returns the HEAD reference, or nil if nothing was committed yet.
// Any other failure to resolve HEAD is an error.
func (g *GitBackend) head() (*plumbing.Reference, error) {
	headRef, err := g.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return headRef, nil
}

// headTree returns the tree of HEAD, or nil if nothing was committed yet.
func (g *GitBackend) headTree() (*object.Tree, error) {
	headRef, err := g.head()
	if err != nil || headRef == nil {
		return nil, err
	}

	commit, err := g.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return tree, nil
}

func readTreeFile(tree *object.Tree, name string) ([]byte, error) {
	file, err := tree.File(name)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read contents: %w", err)
	}

	return []byte(content), nil
}

// createBlob creates a blob object directly in the object store without filesystem I/O
func (g *GitBackend) createBlob(data []byte) (plumbing.Hash, error) {
	obj := g.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to create blob writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("failed to write blob data: %w", err)
	}
	writer.Close()

	hash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store blob: %w", err)
	}

	return hash, nil
}

// getCurrentTree returns the tree hash from the current HEAD commit.
// Returns ZeroHash if repository has no commits yet.
func (g *GitBackend) getCurrentTree() (plumbing.Hash, error) {
	headRef, err := g.head()
	if err != nil || headRef == nil {
		return plumbing.ZeroHash, err
	}

	commit, err := g.repo.CommitObject(headRef.Hash())
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to get head commit: %w", err)
	}

	return commit.TreeHash, nil
}

func (g *GitBackend) getTreeEntries(treeHash plumbing.Hash) (map[string]object.TreeEntry, error) {
	entries := make(map[string]object.TreeEntry)

	if treeHash == plumbing.ZeroHash {
		return entries, nil
	}

	tree, err := object.GetTree(g.repo.Storer, treeHash)
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	for _, entry := range tree.Entries {
		entries[entry.Name] = entry
	}

	return entries, nil
}

func (g *GitBackend) buildTreeFromEntries(entries []object.TreeEntry) (plumbing.Hash, error) {
	// Git orders directories as if their name had a trailing slash
	sort.Slice(entries, func(i, j int) bool {
		nameI := entries[i].Name
		nameJ := entries[j].Name
		if entries[i].Mode == filemode.Dir {
			nameI += "/"
		}
		if entries[j].Mode == filemode.Dir {
			nameJ += "/"
		}
		return nameI < nameJ
	})

	tree := &object.Tree{Entries: entries}

	obj := g.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to encode tree: %w", err)
	}

	hash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to store tree: %w", err)
	}

	return hash, nil
}

// setTreeEntry returns the hash of a tree equal to rootTreeHash with name
// pointing at blobHash. Document names never contain a separator, so only
// the root tree changes.
func (g *GitBackend) setTreeEntry(rootTreeHash plumbing.Hash, name string, blobHash plumbing.Hash) (plumbing.Hash, error) {
	entries, err := g.getTreeEntries(rootTreeHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	entries[name] = object.TreeEntry{
		Name: name,
		Mode: filemode.Regular,
		Hash: blobHash,
	}

	entrySlice := make([]object.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		entrySlice = append(entrySlice, entry)
	}

	return g.buildTreeFromEntries(entrySlice)
}

// createCommitDirect creates a commit object and moves the branch to it without using the worktree
func (g *GitBackend) createCommitDirect(treeHash plumbing.Hash, message string) (Transaction, error) {
	var parentHashes []plumbing.Hash
	headRef, err := g.head()
	if err != nil {
		return Transaction{}, err
	}
	if headRef != nil {
		parentHashes = []plumbing.Hash{headRef.Hash()}
	}

	sig := object.Signature{
		Name:  g.identity.Name,
		Email: g.identity.Email,
		When:  time.Now(),
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     treeHash,
		ParentHashes: parentHashes,
	}

	obj := g.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return Transaction{}, fmt.Errorf("failed to encode commit: %w", err)
	}

	commitHash, err := g.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return Transaction{}, fmt.Errorf("failed to store commit: %w", err)
	}

	branchName := plumbing.Master
	if headRef != nil && headRef.Name().IsBranch() {
		branchName = headRef.Name()
	} else if sym, err := g.repo.Storer.Reference(plumbing.HEAD); err == nil && sym.Type() == plumbing.SymbolicReference {
		branchName = sym.Target()
	}

	ref := plumbing.NewHashReference(branchName, commitHash)
	if err := g.repo.Storer.SetReference(ref); err != nil {
		return Transaction{}, fmt.Errorf("failed to update HEAD: %w", err)
	}

	return Transaction{
		Id:      commitHash.String(),
		When:    sig.When,
		Author:  formatAuthor(sig),
		Message: message,
	}, nil
}

// syncWorktree updates the worktree filesystem to match HEAD.
// Memory mode reads go to the Git tree directly, so there is nothing to sync.
func (g *GitBackend) syncWorktree() error {
	if g.isMemoryMode {
		return nil
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return err
	}

	headRef, err := g.repo.Head()
	if err != nil {
		return err
	}

	return wt.Reset(&git.ResetOptions{
		Mode:   git.HardReset,
		Commit: headRef.Hash(),
	})
}
