// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package dirsource provides a scripted.Source that reads scripts from
// files under a directory.
//
// A script named "a/b" is the file "a/b" plus the source's extension
// under its root directory, or, if there is no such file, the file
// "a/b" itself.  Descriptors are kept while the file's modification
// time does not change, so compiled scripts survive until the file is
// edited.
package dirsource

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/scripted"
)

// Source is a directory of scripts.
type Source struct {
	root      string
	extension string
	clock     clock.Clock

	lock        sync.Mutex
	descriptors map[string]*scripted.Descriptor
}

// New creates a source for the directory root.  extension, if not
// empty, is the default file extension for scripts, including its
// leading dot.
func New(root, extension string) *Source {
	return NewWithClock(root, extension, clock.New())
}

// NewWithClock creates a source using an alternate time source for
// the modification times Put sets.
func NewWithClock(root, extension string, clk clock.Clock) *Source {
	return &Source{
		root:        root,
		extension:   extension,
		clock:       clk,
		descriptors: make(map[string]*scripted.Descriptor),
	}
}

// Root returns the directory scripts are read from.
func (s *Source) Root() string {
	return s.root
}

// file converts a script name to a relative file path, refusing names
// that would leave the root directory.
func (s *Source) file(name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}
	rel := filepath.FromSlash(name)
	if filepath.IsAbs(rel) || !filepath.IsLocal(rel) {
		return "", false
	}
	return rel, true
}

// stat finds the file for name, returning its path and info.
func (s *Source) stat(name string) (string, fs.FileInfo, error) {
	rel, ok := s.file(name)
	if !ok {
		return "", nil, scripted.ErrNoSuchScript{Name: name}
	}
	candidates := []string{rel}
	if s.extension != "" {
		candidates = []string{rel + s.extension, rel}
	}
	for _, candidate := range candidates {
		path := filepath.Join(s.root, candidate)
		info, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		if info.IsDir() {
			continue
		}
		return path, info, nil
	}
	return "", nil, scripted.ErrNoSuchScript{Name: name}
}

// Descriptor returns the descriptor for a named script, reading the
// file if it has changed since the last call.
func (s *Source) Descriptor(ctx context.Context, name string) (*scripted.Descriptor, error) {
	path, info, err := s.stat(name)
	if err != nil {
		s.forget(name)
		return nil, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if d, present := s.descriptors[name]; present && d.Modified().Equal(info.ModTime()) {
		return d, nil
	}
	text, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		delete(s.descriptors, name)
		return nil, scripted.ErrNoSuchScript{Name: name}
	}
	if err != nil {
		return nil, err
	}
	d := scripted.NewDescriptor(name, string(text), info.ModTime())
	s.descriptors[name] = d
	return d, nil
}

func (s *Source) forget(name string) {
	s.lock.Lock()
	delete(s.descriptors, name)
	s.lock.Unlock()
}

// Put writes a script file, creating directories as needed, and sets
// its modification time from the source's clock.
func (s *Source) Put(name, text string) error {
	rel, ok := s.file(name)
	if !ok {
		return scripted.ErrNoSuchScript{Name: name}
	}
	path := filepath.Join(s.root, rel+s.extension)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return err
	}
	now := s.clock.Now()
	return os.Chtimes(path, now, now)
}

// Remove deletes a script file.  Removing a script that does not
// exist is not an error.
func (s *Source) Remove(name string) error {
	s.forget(name)
	path, _, err := s.stat(name)
	if errors.As(err, &scripted.ErrNoSuchScript{}) {
		return nil
	}
	if err != nil {
		return err
	}
	return os.Remove(path)
}

// Names returns the sorted names of all scripts under the root.
func (s *Source) Names() ([]string, error) {
	seen := make(map[string]struct{})
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if s.extension != "" {
			name = strings.TrimSuffix(name, s.extension)
		}
		seen[name] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
