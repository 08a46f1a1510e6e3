// Copyright (C) 2025 Gavelworks
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package chat

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gavelworks/courtroom/services/orchestrator/datatypes"
)

// ExampleSource supplies the few-shot examples injected into the answer
// prompt. Implementations must be safe for concurrent use.
type ExampleSource interface {
	Examples() []datatypes.FewShotExample
}

// StaticExamples is a fixed example set.
type StaticExamples []datatypes.FewShotExample

func (s StaticExamples) Examples() []datatypes.FewShotExample {
	return s
}

// DefaultExamples returns the built-in income-tax examples used when no
// example file is configured.
func DefaultExamples() StaticExamples {
	return StaticExamples{
		{
			Question: "소득세법상 거주자의 정의가 뭐야?",
			Answer: "소득세법상 거주자는 국내에 주소를 두거나 183일 이상 거소를 둔 개인을 말합니다. " +
				"거주자는 국내외 모든 소득에 대해 납세 의무를 집니다.",
		},
		{
			Question: "연봉 5천만원인 직장인의 소득세는 얼마야?",
			Answer: "연봉 5천만원인 거주자의 소득세는 근로소득공제와 과세표준 구간에 따라 계산됩니다. " +
				"대략적인 산출세액은 약 600만원 수준이며 각종 공제에 따라 달라질 수 있습니다.",
		},
	}
}

// exampleFile is the on-disk YAML shape.
type exampleFile struct {
	Examples []datatypes.FewShotExample `yaml:"examples"`
}

// FileExampleSource loads examples from a YAML file and hot-reloads
// them when the file changes.
//
// # Description
//
// The file must contain an `examples` list of question/answer pairs.
// On watch events the file is re-parsed; a parse failure keeps the last
// good set and logs a warning. Close stops the watcher.
type FileExampleSource struct {
	path string

	mu       sync.RWMutex
	examples []datatypes.FewShotExample

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileExampleSource loads path and begins watching it for changes.
func NewFileExampleSource(path string) (*FileExampleSource, error) {
	s := &FileExampleSource{path: path, done: make(chan struct{})}
	if err := s.reload(); err != nil {
		return nil, fmt.Errorf("failed to load examples from %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create example watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	s.watcher = watcher

	go s.watch()
	return s, nil
}

// Examples implements the ExampleSource interface.
func (s *FileExampleSource) Examples() []datatypes.FewShotExample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examples
}

// Close stops the file watcher.
func (s *FileExampleSource) Close() error {
	close(s.done)
	return s.watcher.Close()
}

func (s *FileExampleSource) reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var parsed exampleFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return err
	}

	s.mu.Lock()
	s.examples = parsed.Examples
	s.mu.Unlock()
	slog.Info("loaded few-shot examples", "path", s.path, "count", len(parsed.Examples))
	return nil
}

func (s *FileExampleSource) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.reload(); err != nil {
				slog.Warn("failed to reload few-shot examples, keeping previous set",
					"path", s.path,
					"error", err,
				)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("example watcher error", "error", err)
		}
	}
}
