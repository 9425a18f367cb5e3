package resolve

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ossforge/toto/core/model"
)

// fileResolver is the default "file" scheme: it accepts a path relative
// to opts.BaseDir (or absolute) and hashes it, recursing into
// directories and following symlinks, per spec §4.4.
type fileResolver struct{}

func (fileResolver) Resolve(uri string, opts Options) (map[string]model.DigestSet, error) {
	absPath := resolveAbs(uri, opts.BaseDir)
	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, fmt.Errorf("resolve: stat %s: %w", uri, err)
	}

	var jobs []digestJob
	if err := walk(absPath, opts.BaseDir, opts, info, map[string]bool{}, &jobs); err != nil {
		return nil, err
	}
	return digestAll(jobs, opts.algorithms(), opts.NormalizeLineEndings)
}

func resolveAbs(uri, baseDir string) string {
	if filepath.IsAbs(uri) {
		return uri
	}
	if baseDir == "" {
		return uri
	}
	return filepath.Join(baseDir, uri)
}

// walk recursively collects digest entries under absPath, following
// symlinks and detecting loops via the realpaths already on the
// current descent (ancestry, not the whole tree — revisiting the same
// real directory via two different symlink branches is not a loop).
func walk(absPath, baseDir string, opts Options, info os.FileInfo, ancestry map[string]bool, jobs *[]digestJob) error {
	resolved := absPath
	if info.Mode()&os.ModeSymlink != 0 {
		target, err := filepath.EvalSymlinks(absPath)
		if err != nil {
			return fmt.Errorf("resolve: resolve symlink %s: %w", absPath, err)
		}
		resolved = target
		targetInfo, err := os.Stat(resolved)
		if err != nil {
			return fmt.Errorf("resolve: stat symlink target %s: %w", absPath, err)
		}
		info = targetInfo
	}

	relPath, err := filepath.Rel(baseDir, absPath)
	if err != nil || baseDir == "" {
		relPath = absPath
	}
	normalizedRel := normalizeRelPath(relPath)

	if info.IsDir() {
		if Excluded(opts.Excludes, normalizedRel, true) {
			return nil
		}
		if ancestry[resolved] {
			return fmt.Errorf("resolve: symlink loop detected at %s", absPath)
		}
		nextAncestry := make(map[string]bool, len(ancestry)+1)
		for k := range ancestry {
			nextAncestry[k] = true
		}
		nextAncestry[resolved] = true

		entries, err := os.ReadDir(resolved)
		if err != nil {
			return fmt.Errorf("resolve: read dir %s: %w", absPath, err)
		}
		for _, entry := range entries {
			childInfo, err := entry.Info()
			if err != nil {
				return fmt.Errorf("resolve: stat dir entry %s: %w", entry.Name(), err)
			}
			if err := walk(filepath.Join(absPath, entry.Name()), baseDir, opts, childInfo, nextAncestry, jobs); err != nil {
				return err
			}
		}
		return nil
	}

	normalizedFile, err := normalizeFilePath(normalizedRel)
	if err != nil {
		return err
	}
	if Excluded(opts.Excludes, normalizedFile, false) {
		return nil
	}
	*jobs = append(*jobs, digestJob{relPath: normalizedFile, absPath: resolved})
	return nil
}
