package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrInvalidFilename is returned for names that would escape the output directory
var ErrInvalidFilename = errors.New("invalid file name")

// tempSuffix marks files that are still being written
const tempSuffix = ".tmp"

// Manager handles file storage operations and duplicate detection
type Manager struct {
	outputDir string
	saved     map[string]bool
	overwrite bool
	mu        sync.RWMutex
}

// NewManager creates a new storage manager
func NewManager(outputDir string) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manager := &Manager{
		outputDir: outputDir,
		saved:     make(map[string]bool),
	}

	if err := manager.scanExistingFiles(); err != nil {
		return nil, fmt.Errorf("failed to scan existing files: %w", err)
	}

	return manager, nil
}

// WithOverwrite makes Exists report false so every file is written again
func (m *Manager) WithOverwrite(overwrite bool) *Manager {
	m.overwrite = overwrite
	return m
}

// scanExistingFiles records the files already present in the output directory.
// Leftover temporary files are ignored.
func (m *Manager) scanExistingFiles() error {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}
		m.saved[entry.Name()] = true
	}

	return nil
}

// cleanName rejects names that are empty or carry a directory component
func cleanName(filename string) (string, error) {
	name := filepath.Base(filename)
	if filename == "" || name != filename || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilename, filename)
	}
	return name, nil
}

// Exists reports whether filename has already been saved
func (m *Manager) Exists(filename string) bool {
	if m.overwrite {
		return false
	}
	name, err := cleanName(filename)
	if err != nil {
		return false
	}

	m.mu.RLock()
	known := m.saved[name]
	m.mu.RUnlock()
	if known {
		return true
	}

	if _, err := os.Stat(filepath.Join(m.outputDir, name)); err == nil {
		m.mu.Lock()
		m.saved[name] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes r to filename atomically and returns the final path
func (m *Manager) Save(r io.Reader, filename string) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}

	path := m.Path(name)
	tempFile := path + tempSuffix
	out, err := os.Create(tempFile)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()

	if err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	if closeErr != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	m.mu.Lock()
	m.saved[name] = true
	m.mu.Unlock()

	return path, nil
}

// Path returns where filename is stored
func (m *Manager) Path(filename string) string {
	return filepath.Join(m.outputDir, filename)
}

// OutputDir returns the output directory path
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// Count returns the number of files known to be saved
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.saved)
}
