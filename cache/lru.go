// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

// This file provides a simple LRU cache of script output, keyed by
// script name.

import (
	"container/list"
	"context"
	"sync"

	"github.com/diffeo/go-scripted/scripted"
)

// entry is one element of the eviction list.
type entry struct {
	name  string
	value scripted.RepresentableString
}

// LRU is a least-recently-used cache of script output with a fixed
// capacity.  The cache can be safely accessed from multiple
// goroutines.
type LRU struct {
	size      int
	lock      sync.RWMutex
	evictList *list.List
	index     map[string]*list.Element
}

// NewLRU creates an LRU cache holding at most size entries.
func NewLRU(size int) *LRU {
	if size < 1 {
		size = 1
	}
	return &LRU{
		size:      size,
		evictList: list.New(),
		index:     make(map[string]*list.Element),
	}
}

// Get retrieves an item from the cache, marking it as recently used.
func (lru *LRU) Get(ctx context.Context, name string) (scripted.RepresentableString, bool) {
	// This sadly happens under a writer lock, since we need to move
	// the item to the back of the list if it is present
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[name]; present {
		lru.evictList.MoveToBack(element)
		return element.Value.(*entry).value, true
	}
	return scripted.RepresentableString{}, false
}

// Peek looks for an item in the cache.  This runs under a reader
// lock, and does not affect the recency of the item.
func (lru *LRU) Peek(name string) (scripted.RepresentableString, bool) {
	lru.lock.RLock()
	defer lru.lock.RUnlock()

	if element, present := lru.index[name]; present {
		return element.Value.(*entry).value, true
	}
	return scripted.RepresentableString{}, false
}

// Put adds an item to the cache, possibly evicting something.  An
// existing item with the same name is replaced.
func (lru *LRU) Put(ctx context.Context, name string, value scripted.RepresentableString) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	// Are we just updating an existing item?
	if element, present := lru.index[name]; present {
		element.Value = &entry{name: name, value: value}
		lru.evictList.MoveToBack(element)
		return
	}

	element := lru.evictList.PushBack(&entry{name: name, value: value})
	lru.index[name] = element

	// If this caused the cache to go over size, start evicting items
	for len(lru.index) > lru.size {
		head := lru.evictList.Front()
		delete(lru.index, head.Value.(*entry).name)
		lru.evictList.Remove(head)
	}
}

// Remove takes an item out of the cache.  It does nothing if that
// name does not exist.
func (lru *LRU) Remove(name string) {
	lru.lock.Lock()
	defer lru.lock.Unlock()

	if element, present := lru.index[name]; present {
		delete(lru.index, name)
		lru.evictList.Remove(element)
	}
}

// Len returns the number of items in the cache.
func (lru *LRU) Len() int {
	lru.lock.RLock()
	defer lru.lock.RUnlock()
	return len(lru.index)
}
