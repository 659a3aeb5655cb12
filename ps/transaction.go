package ps

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/object"
)

// Transaction is one revision recorded by a versioned backend.
type Transaction struct {
	Id      string
	When    time.Time
	Author  string // "Name <email>" format
	Message string
}

func (transaction Transaction) String() string {
	return fmt.Sprintf("Transaction{Id: %s, When: %s, Author: %s}", transaction.Id, transaction.When, transaction.Author)
}

func formatAuthor(sig object.Signature) string {
	if sig.Name == "" && sig.Email == "" {
		return ""
	}
	return fmt.Sprintf("%s <%s>", sig.Name, sig.Email)
}

func transactionFromCommit(c *object.Commit) Transaction {
	return Transaction{
		Id:      c.Hash.String(),
		When:    c.Committer.When,
		Author:  formatAuthor(c.Author),
		Message: strings.TrimSpace(c.Message),
	}
}

// LatestTransaction returns the revision at HEAD, or the zero Transaction
// if nothing was committed yet.
func (g *GitBackend) LatestTransaction() Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()

	headRef, err := g.repo.Head()
	if err != nil {
		return Transaction{}
	}

	commit, err := g.repo.CommitObject(headRef.Hash())
	if err != nil {
		return Transaction{}
	}

	return transactionFromCommit(commit)
}

// History lists the revisions that changed name, newest first.
func (g *GitBackend) History(name string) ([]Transaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	headRef, err := g.head()
	if err != nil || headRef == nil {
		return nil, err
	}

	cIter, err := g.repo.Log(&git.LogOptions{
		FileName: &name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	defer cIter.Close()

	var transactions []Transaction
	err = cIter.ForEach(func(c *object.Commit) error {
		transactions = append(transactions, transactionFromCommit(c))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	return transactions, nil
}

// ReadAt returns the content of name as of the given revision.
func (g *GitBackend) ReadAt(name string, txnID string) ([]byte, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	commit, err := g.repo.CommitObject(plumbing.NewHash(txnID))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("transaction %s not found", txnID)
		}
		return nil, fmt.Errorf("failed to get commit: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	return readTreeFile(tree, name)
}
