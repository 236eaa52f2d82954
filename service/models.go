package service

import (
	"os"
	"path/filepath"
)

// ModelLocator resolves a model reference to a local directory. It only
// ever looks at the local filesystem; remote model download is a hard
// policy exclusion, not a fallback.
type ModelLocator struct {
	projectRoot string
	roots       []string
}

// NewModelLocator builds the ordered, deduplicated search root list:
// configured extra paths first, then the local models directory, then
// the model cache directory.
func NewModelLocator(projectRoot string, extraRoots []string, modelsDir, cacheDir string) *ModelLocator {
	if modelsDir == "" {
		modelsDir = filepath.Join(projectRoot, "data", "models")
	}
	if cacheDir == "" {
		cacheDir = os.Getenv("MODELSCOPE_CACHE")
		if cacheDir == "" {
			cacheDir = filepath.Join(projectRoot, "data", "modelscope_cache")
		}
	}

	l := &ModelLocator{projectRoot: projectRoot}
	seen := make(map[string]struct{})
	addRoot := func(path string) {
		if path == "" {
			return
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(projectRoot, path)
		}
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		l.roots = append(l.roots, path)
	}

	for _, root := range extraRoots {
		addRoot(root)
	}
	addRoot(modelsDir)
	addRoot(filepath.Join(cacheDir, "models"))

	return l
}

// Roots returns the search roots in resolution order.
func (l *ModelLocator) Roots() []string {
	return l.roots
}

// Resolve maps ref to an existing local path. Absolute refs are used as
// is; relative refs are tried against the working directory and the
// project root, then looked up as a subdirectory of each search root.
func (l *ModelLocator) Resolve(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}

	if filepath.IsAbs(ref) {
		if pathExists(ref) {
			return filepath.Clean(ref), true
		}
		return "", false
	}

	if cwd, err := os.Getwd(); err == nil {
		candidate := filepath.Join(cwd, ref)
		if pathExists(candidate) {
			return candidate, true
		}
	}
	candidate := filepath.Join(l.projectRoot, ref)
	if pathExists(candidate) {
		return candidate, true
	}

	for _, root := range l.roots {
		candidate := filepath.Join(root, ref)
		if pathExists(candidate) {
			return candidate, true
		}
	}

	return "", false
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
