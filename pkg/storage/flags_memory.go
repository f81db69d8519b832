// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of cognito-sdk.
//
// cognito-sdk is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package storage

import (
	"context"
	"sync"
)

// MemoryFlagStore is an in-memory implementation of FlagStore.
// This is intended for development and testing only.
type MemoryFlagStore struct {
	mu    sync.RWMutex
	flags map[string]string
}

// NewMemoryFlagStore creates a new in-memory flag store.
func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{
		flags: make(map[string]string),
	}
}

// Get retrieves a flag value.
func (s *MemoryFlagStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.flags[key]
	if !ok {
		return "", ErrFlagNotFound
	}
	return value, nil
}

// Set stores a flag value.
func (s *MemoryFlagStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags[key] = value
	return nil
}

// Delete removes a flag.
func (s *MemoryFlagStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flags, key)
	return nil
}
