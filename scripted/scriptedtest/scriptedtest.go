// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package scriptedtest provides generic functional tests for the
// scripted.Source interface.  A typical source test needs to wrap
// Suite to create its source:
//
//     package mysource
//
//     import (
//             "testing"
//             "github.com/diffeo/go-scripted/scripted/scriptedtest"
//             "github.com/stretchr/testify/suite"
//     )
//
//     type Suite struct {
//             scriptedtest.Suite
//     }
//
//     func (s *Suite) SetupTest() {
//             s.Suite.SetupTest()
//             source := NewWithClock(s.Clock)
//             s.Source = source
//             s.Put = source.Put
//     }
//
//     func TestSource(t *testing.T) {
//             suite.Run(t, &Suite{})
//     }
package scriptedtest

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/stretchr/testify/suite"
)

// Suite is the generic Source test suite.
type Suite struct {
	suite.Suite

	// Clock contains the alternate time source to be used in
	// tests.  It is reinitialized to a mock clock before each
	// test.
	Clock *clock.Mock

	// Source is the source under test.  It is set by importing
	// packages.
	Source scripted.Source

	// Put stores a script in the source under test, replacing
	// any existing script with the same name.
	Put func(name, text string) error
}

// SetupTest creates a fresh mock clock, set to a time that is not the
// zero time.
func (s *Suite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Clock.Add(24 * time.Hour)
}

// compiled is a trivial scripted.Script.
type compiled struct {
	text string
}

func (c *compiled) Trivial() (string, bool) {
	return c.text, true
}

func (c *compiled) Run(*scripted.Invocation) (bool, error) {
	return true, nil
}

func (s *Suite) descriptor(name string) *scripted.Descriptor {
	d, err := s.Source.Descriptor(context.Background(), name)
	if s.NoError(err) && s.NotNil(d) {
		return d
	}
	s.FailNow("could not resolve script", name)
	return nil
}

// TestResolve checks that a stored script can be found.
func (s *Suite) TestResolve() {
	s.Require().NoError(s.Put("hello", "Hello, world"))
	d := s.descriptor("hello")
	s.Equal("hello", d.Name())
	s.Equal("Hello, world", d.Text())
	s.Nil(d.Script())
}

// TestNoSuchScript checks the error for an unknown script.
func (s *Suite) TestNoSuchScript() {
	_, err := s.Source.Descriptor(context.Background(), "missing")
	s.Equal(scripted.ErrNoSuchScript{Name: "missing"}, err)
}

// TestStableDescriptor checks that the same descriptor, and so the
// same compiled script, is returned while the script is unchanged.
func (s *Suite) TestStableDescriptor() {
	s.Require().NoError(s.Put("page", "one"))
	first := s.descriptor("page")
	script := &compiled{text: "one"}
	first.SetScript(script)

	second := s.descriptor("page")
	s.Equal("one", second.Text())
	s.Equal(script, second.Script())
}

// TestChangeInvalidates checks that changing a script's text produces
// a descriptor with no compiled script.
func (s *Suite) TestChangeInvalidates() {
	s.Require().NoError(s.Put("page", "one"))
	first := s.descriptor("page")
	first.SetScript(&compiled{text: "one"})

	s.Clock.Add(time.Minute)
	s.Require().NoError(s.Put("page", "two"))
	second := s.descriptor("page")
	s.Equal("two", second.Text())
	s.Nil(second.Script())
	s.True(second.Modified().After(first.Modified()),
		"modified %v should be after %v", second.Modified(), first.Modified())
}

// TestCompileOnce checks that concurrent compilation of one
// descriptor only compiles once.
func (s *Suite) TestCompileOnce() {
	s.Require().NoError(s.Put("page", "text"))

	var (
		lock  sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	compile := func(text string) (scripted.Script, error) {
		lock.Lock()
		count++
		lock.Unlock()
		return &compiled{text: text}, nil
	}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Source.Descriptor(context.Background(), "page")
			if err == nil {
				_, err = d.Compile(compile)
			}
			s.NoError(err)
		}()
	}
	wg.Wait()
	s.Equal(1, count)
}
