// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diffeo/go-scripted/scripted"
	"github.com/stretchr/testify/assert"
)

type LRUAssertions struct {
	*assert.Assertions
	LRU *LRU
}

func NewLRUAssertions(t assert.TestingT, size int) *LRUAssertions {
	return &LRUAssertions{
		assert.New(t),
		NewLRU(size),
	}
}

func output(text string) scripted.RepresentableString {
	return scripted.NewRepresentableString(text, scripted.Attributes{MediaType: "text/plain"}, time.Time{})
}

// PutName adds an item with name to the cache; its text is the name.
func (a *LRUAssertions) PutName(name string) {
	a.LRU.Put(context.Background(), name, output(name))
}

// GetName fetches an item with name from the cache, which must be
// present.
func (a *LRUAssertions) GetName(name string) {
	value, present := a.LRU.Get(context.Background(), name)
	if a.True(present, "missing %v", name) {
		a.Equal(name, value.Text())
	}
}

// LRUHas asserts that an item with name is in the cache.
func (a *LRUAssertions) LRUHas(name string) {
	_, present := a.LRU.Peek(name)
	a.True(present, "missing %v", name)
}

// LRUDoesNotHave asserts that no item with name is in the cache.
func (a *LRUAssertions) LRUDoesNotHave(name string) {
	_, present := a.LRU.Peek(name)
	a.False(present, "unexpected %v", name)
}

// TestLRUSimple tests minimal object presence.
func TestLRUSimple(t *testing.T) {
	a := NewLRUAssertions(t, 2)
	a.PutName("Sam")

	a.LRUHas("Sam")
	a.LRUDoesNotHave("Horton")
	a.Equal(1, a.LRU.Len())
}

// TestLRUEviction tests that the oldest item is evicted.
func TestLRUEviction(t *testing.T) {
	a := NewLRUAssertions(t, 2)

	a.PutName("Marvin")
	a.PutName("Horton")
	a.LRUHas("Marvin")
	a.LRUHas("Horton")

	// Now add one more name; since it is a third one, the oldest
	// (Marvin) should be evicted
	a.PutName("Sam")
	a.LRUDoesNotHave("Marvin")
	a.LRUHas("Horton")
	a.LRUHas("Sam")
}

// TestLRUOrder tests that getting an item causes it to not get evicted.
func TestLRUOrder(t *testing.T) {
	a := NewLRUAssertions(t, 2)

	a.PutName("Marvin")
	a.PutName("Horton")

	// Do an *additional* get for Marvin, so he is more-recently-used
	a.GetName("Marvin")

	// Now when we add Sam, Horton gets pushed out
	a.PutName("Sam")
	a.LRUHas("Marvin")
	a.LRUDoesNotHave("Horton")
	a.LRUHas("Sam")
}

// TestLRUPeekOrder tests that peeking does not change recency.
func TestLRUPeekOrder(t *testing.T) {
	a := NewLRUAssertions(t, 2)

	a.PutName("Marvin")
	a.PutName("Horton")
	a.LRUHas("Marvin")
	a.PutName("Sam")
	a.LRUDoesNotHave("Marvin")
}

// TestLRUReplace tests that the last writer wins.
func TestLRUReplace(t *testing.T) {
	a := NewLRUAssertions(t, 2)
	a.LRU.Put(context.Background(), "page", output("first"))
	a.LRU.Put(context.Background(), "page", output("second"))
	value, present := a.LRU.Get(context.Background(), "page")
	a.True(present)
	a.Equal("second", value.Text())
	a.Equal(1, a.LRU.Len())
}

// TestLRURemoval does simple tests on the Remove call.
func TestLRURemoval(t *testing.T) {
	a := NewLRUAssertions(t, 2)

	a.PutName("Marvin")
	a.LRUHas("Marvin")
	a.LRU.Remove("Marvin")
	a.LRUDoesNotHave("Marvin")

	a.LRU.Remove("Sam")
	a.LRUDoesNotHave("Sam")

	// Also if we remove a more-recent thing, the
	// older-but-present thing shouldn't get evicted
	a.PutName("Marvin")
	a.PutName("Horton")
	a.LRU.Remove("Horton")
	a.PutName("Sam")
	a.LRUHas("Marvin")
	a.LRUDoesNotHave("Horton")
	a.LRUHas("Sam")
}

// TestLRUConcurrent hammers one cache from several goroutines.
func TestLRUConcurrent(t *testing.T) {
	a := NewLRUAssertions(t, 4)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				a.LRU.Put(context.Background(), "page", output("page"))
				a.LRU.Get(context.Background(), "page")
			}
		}()
	}
	wg.Wait()
	a.GetName("page")
}
