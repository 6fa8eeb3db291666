// Package auth decides who may operate the bot: a fixed owner ID plus a
// cached set of authorized usernames.
package auth

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// UsernameLister loads the persisted usernames.
type UsernameLister interface {
	ListUsernames(ctx context.Context) ([]string, error)
}

// Registry holds the owner ID and the authorized-username cache. It is safe
// for concurrent use.
type Registry struct {
	ownerID int64

	mu        sync.RWMutex
	usernames map[string]string
}

// NewRegistry creates a Registry with an empty username set.
func NewRegistry(ownerID int64) *Registry {
	return &Registry{
		ownerID:   ownerID,
		usernames: make(map[string]string),
	}
}

// NormalizeUsername trims whitespace and a leading @ and lower-cases the
// result for comparison.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}

// Load replaces the cache with the persisted usernames.
func (r *Registry) Load(ctx context.Context, lister UsernameLister) error {
	users, err := lister.ListUsernames(ctx)
	if err != nil {
		return fmt.Errorf("failed to load authorized users: %w", err)
	}

	set := make(map[string]string, len(users))
	for _, u := range users {
		if key := NormalizeUsername(u); key != "" {
			set[key] = strings.TrimPrefix(strings.TrimSpace(u), "@")
		}
	}

	r.mu.Lock()
	r.usernames = set
	r.mu.Unlock()
	return nil
}

// OwnerID returns the owner's Telegram user ID.
func (r *Registry) OwnerID() int64 {
	return r.ownerID
}

// IsOwner reports whether userID is the bot owner.
func (r *Registry) IsOwner(userID int64) bool {
	return r.ownerID != 0 && userID == r.ownerID
}

// IsAuthorized reports whether username is in the cache. Matching ignores
// case and a leading @.
func (r *Registry) IsAuthorized(username string) bool {
	key := NormalizeUsername(username)
	if key == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.usernames[key]
	return ok
}

// Allowed reports whether a sender may use operator commands.
func (r *Registry) Allowed(userID int64, username string) bool {
	return r.IsOwner(userID) || r.IsAuthorized(username)
}

// Add puts a username in the cache. It reports false if it was already there.
func (r *Registry) Add(username string) bool {
	key := NormalizeUsername(username)
	if key == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.usernames[key]; ok {
		return false
	}
	r.usernames[key] = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return true
}

// Remove drops a username from the cache. It reports false if it was absent.
func (r *Registry) Remove(username string) bool {
	key := NormalizeUsername(username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.usernames[key]; !ok {
		return false
	}
	delete(r.usernames, key)
	return true
}

// Usernames returns the cached usernames sorted case-insensitively.
func (r *Registry) Usernames() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.usernames))
	for k := range r.usernames {
		keys = append(keys, k)
	}
	names := make([]string, 0, len(keys))
	sort.Strings(keys)
	for _, k := range keys {
		names = append(names, r.usernames[k])
	}
	r.mu.RUnlock()
	return names
}
