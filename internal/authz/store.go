package authz

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the permissions granted to an admin from the backend.
type FetchFunc func(ctx context.Context, token, adminID string) ([]Permission, error)

// Store is the process-wide holder of per-session permission sets. It is the
// single writer of permission state: the guard populates it, logout and 401
// teardown drop it, and grant/revoke mutations invalidate it. Sets are never
// persisted; each session starts empty and is resolved at most once.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*storeEntry
	nextGen uint64

	group  singleflight.Group
	fetch  FetchFunc
	logger *slog.Logger
}

type storeEntry struct {
	adminID string
	gen     uint64
	set     *PermissionSet
}

// NewStore constructs a Store resolving sets through fetch.
func NewStore(fetch FetchFunc, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries: make(map[string]*storeEntry),
		fetch:   fetch,
		logger:  logger,
	}
}

// Resolve returns the permission set for the session, fetching it on first
// use. Concurrent resolves for one session share a single backend call. A
// fetch error resolves to the empty set: the admin still reaches the shell,
// every gated check then denies. Results arriving after the session was
// dropped or invalidated are discarded.
func (s *Store) Resolve(ctx context.Context, sessionID, adminID, token string) *PermissionSet {
	if sessionID == "" || adminID == "" {
		return NewPermissionSet(nil)
	}

	s.mu.Lock()
	e, ok := s.entries[sessionID]
	if !ok || e.adminID != adminID {
		s.nextGen++
		e = &storeEntry{adminID: adminID, gen: s.nextGen}
		s.entries[sessionID] = e
	}
	if e.set != nil {
		set := e.set
		s.mu.Unlock()
		return set
	}
	gen := e.gen
	s.mu.Unlock()

	// The generation keys the flight so a resolve issued after an
	// invalidation never coalesces with a stale in-flight fetch.
	key := fmt.Sprintf("%s:%d", sessionID, gen)
	v, _, _ := s.group.Do(key, func() (any, error) {
		perms, err := s.fetch(ctx, token, adminID)
		if err != nil {
			s.logger.Error("permission fetch failed, resolving to empty set",
				slog.String("admin_id", adminID), slog.Any("error", err))
			return NewPermissionSet(nil), nil
		}
		return NewPermissionSet(perms), nil
	})
	set := v.(*PermissionSet)

	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[sessionID]
	if !ok || cur.gen != gen || cur.adminID != adminID {
		// Session logged out or was invalidated while the fetch was in
		// flight; the result must not repopulate state.
		return NewPermissionSet(nil)
	}
	cur.set = set
	return set
}

// Get returns the already-resolved set for a session, if any.
func (s *Store) Get(sessionID string) (*PermissionSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[sessionID]
	if !ok || e.set == nil {
		return nil, false
	}
	return e.set, true
}

// Invalidate clears the resolved set for a session so the next request
// re-fetches. The session itself stays live.
func (s *Store) Invalidate(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[sessionID]; ok {
		s.nextGen++
		e.gen = s.nextGen
		e.set = nil
	}
}

// InvalidateAdmin clears the sets of every session belonging to the admin.
// Called after a grant or revoke so the change is visible on the admin's next
// request without re-login.
func (s *Store) InvalidateAdmin(adminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.adminID == adminID {
			s.nextGen++
			e.gen = s.nextGen
			e.set = nil
		}
	}
}

// Drop removes all permission state for a session. Called on logout and on a
// backend 401; any in-flight fetch for the session resolves into the void.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
}
