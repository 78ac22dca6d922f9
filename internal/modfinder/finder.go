// Package modfinder locates a compiled guest module on disk.
package modfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnvModuleDir is the environment variable naming a directory of guest modules.
const EnvModuleDir = "HELLOWASM_MODULE_DIR"

// Pattern matches guest module file names inside a search directory.
const Pattern = "hellowasm*.wasm"

// Sentinel errors.
var (
	ErrModuleDirNotFound = errors.New("module directory not found")
	ErrNoModules         = errors.New("no guest modules found")
)

// DefaultModuleDirs returns candidate directories in priority order:
// ./build, then $XDG_DATA_HOME/hellowasm (or ~/.local/share/hellowasm).
func DefaultModuleDirs() []string {
	dirs := []string{"build"}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dataHome = filepath.Join(home, ".local", "share")
		}
	}
	if dataHome != "" {
		dirs = append(dirs, filepath.Join(dataHome, "hellowasm"))
	}
	return dirs
}

// FindModuleDir returns a directory holding at least one guest module.
//
// Priority:
//  1. explicit (if non-empty)
//  2. HELLOWASM_MODULE_DIR environment variable
//  3. Auto-detect from DefaultModuleDirs()
//
// The returned path has symlinks resolved.
func FindModuleDir(explicit string) (string, error) {
	if explicit != "" {
		if resolved := resolveModuleDir(explicit); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s contains no %s", ErrModuleDirNotFound, explicit, Pattern)
	}

	if envDir := os.Getenv(EnvModuleDir); envDir != "" {
		if resolved := resolveModuleDir(envDir); resolved != "" {
			return resolved, nil
		}
		return "", fmt.Errorf("%w: %s points to an invalid directory", ErrModuleDirNotFound, EnvModuleDir)
	}

	for _, dir := range DefaultModuleDirs() {
		if resolved := resolveModuleDir(dir); resolved != "" {
			return resolved, nil
		}
	}
	return "", ErrModuleDirNotFound
}

// FindModule resolves a module directory and returns its newest guest module.
func FindModule(explicitDir string) (string, error) {
	dir, err := FindModuleDir(explicitDir)
	if err != nil {
		return "", err
	}
	return FindLatestModule(dir)
}

type candidate struct {
	path    string
	modTime int64
}

// FindLatestModule returns the most recently modified guest module in dir.
// Stat results are taken once so a file removed mid-scan cannot reorder the sort.
func FindLatestModule(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, Pattern))
	if err != nil {
		return "", fmt.Errorf("globbing modules: %w", err)
	}

	candidates := make([]candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, candidate{path: m, modTime: info.ModTime().UnixNano()})
	}
	if len(candidates) == 0 {
		return "", ErrNoModules
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime > candidates[j].modTime
	})
	return candidates[0].path, nil
}

// resolveModuleDir returns dir with symlinks resolved, or "" when it is
// not a directory holding at least one guest module.
func resolveModuleDir(dir string) string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return ""
	}
	matches, err := filepath.Glob(filepath.Join(resolved, Pattern))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return resolved
}
