// Copyright (C) 2025 FactLens Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package prompt holds the agent prompt templates. Defaults are compiled
// into the binary; an optional on-disk directory overrides them and is
// hot-reloaded on change.
package prompt

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

//go:embed templates/*.txt
var defaultTemplates embed.FS

// Template names known to the registry.
const (
	PlannerPrompt     = "planner"
	SynthesizerPrompt = "synthesizer"
	UnlimitSuffix     = "planner_unlimit_suffix"
)

// Registry serves prompt templates by name. Read-mostly; the watcher
// goroutine is the only writer after startup.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]string

	overrideDir string
	watcher     *fsnotify.Watcher
	done        chan struct{}
}

// NewRegistry loads the embedded defaults and, if dir is non-empty,
// layers any <name>.txt files found there on top.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{
		templates:   make(map[string]string),
		overrideDir: dir,
		done:        make(chan struct{}),
	}

	entries, err := defaultTemplates.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("reading embedded templates: %w", err)
	}
	for _, e := range entries {
		data, err := defaultTemplates.ReadFile("templates/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("reading embedded template %s: %w", e.Name(), err)
		}
		r.templates[strings.TrimSuffix(e.Name(), ".txt")] = string(data)
	}

	if dir != "" {
		if err := r.loadOverrides(); err != nil {
			slog.Warn("Prompt override directory not loaded", "dir", dir, "error", err)
		}
	}
	return r, nil
}

// Get returns the template for name, or "" when unknown.
func (r *Registry) Get(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[name]
}

// Render substitutes the named placeholders into the template. The
// substitution is brace-safe: literal braces anywhere in the template or
// in the values never collide with placeholder syntax, because only the
// exact `{key}` tokens for the provided keys are replaced.
func (r *Registry) Render(name string, vars map[string]string) (string, error) {
	tmpl := r.Get(name)
	if tmpl == "" {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	return RenderString(tmpl, vars), nil
}

// RenderString is the substitution core, exported for callers that carry
// their own template text.
func RenderString(tmpl string, vars map[string]string) string {
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// =============================================================================
// Hot reload
// =============================================================================

// Watch starts a goroutine that reloads override templates whenever the
// override directory changes. No-op when no directory was configured.
func (r *Registry) Watch() error {
	if r.overrideDir == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating prompt watcher: %w", err)
	}
	if err := w.Add(r.overrideDir); err != nil {
		w.Close()
		return fmt.Errorf("watching prompt dir %s: %w", r.overrideDir, err)
	}
	r.watcher = w

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Ext(ev.Name) != ".txt" {
					continue
				}
				if err := r.loadOverrides(); err != nil {
					slog.Warn("Prompt reload failed", "error", err)
					continue
				}
				slog.Info("Reloaded prompt templates", "trigger", ev.Name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("Prompt watcher error", "error", err)
			case <-r.done:
				return
			}
		}
	}()
	return nil
}

// Stop shuts the watcher goroutine down.
func (r *Registry) Stop() {
	close(r.done)
	if r.watcher != nil {
		r.watcher.Close()
	}
}

func (r *Registry) loadOverrides() error {
	entries, err := os.ReadDir(r.overrideDir)
	if err != nil {
		return err
	}
	loaded := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".txt" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.overrideDir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading override %s: %w", e.Name(), err)
		}
		loaded[strings.TrimSuffix(e.Name(), ".txt")] = string(data)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for name, text := range loaded {
		r.templates[name] = text
	}
	return nil
}
