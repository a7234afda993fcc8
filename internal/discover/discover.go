// Package discover finds corpus input files on disk.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// CollectFiles scans each root directory for files whose base name matches
// pattern (shell-style glob, "" means "*"), descending into subdirectories
// when recursive is set.
//
// Roots that do not exist or are not directories are skipped silently.
// Results are deduplicated by absolute path and sorted, so repeated runs over
// the same tree process files in the same order; shard contents depend on
// this ordering.
func CollectFiles(roots []string, pattern string, recursive bool) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	if _, err := filepath.Match(pattern, "probe"); err != nil {
		return nil, fmt.Errorf("glob pattern %q: %w", pattern, err)
	}

	seen := map[string]struct{}{}
	var out []string

	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}
		if _, ok := seen[abs]; ok {
			return nil
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
		return nil
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}

		if recursive {
			walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				if ok, _ := filepath.Match(pattern, d.Name()); !ok {
					return nil
				}
				return add(path)
			})
			if walkErr != nil {
				return nil, fmt.Errorf("walk %s: %w", root, walkErr)
			}
			continue
		}

		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", root, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if ok, _ := filepath.Match(pattern, e.Name()); !ok {
				continue
			}
			if err := add(filepath.Join(root, e.Name())); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(out)
	return out, nil
}
