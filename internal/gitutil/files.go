package gitutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxLoadableFileSize caps how much of a single file is read from a
// worktree. Larger files are skipped outright.
const maxLoadableFileSize = 1 << 20

// LoadedFile is one file read from a worktree, with a slash-separated path
// relative to the repository root.
type LoadedFile struct {
	Path    string
	Content string
}

// LoadFiles walks a repository worktree and reads every regular file under
// the size cap. The .git directory is skipped; filtering by extension or
// repository settings is the indexer's concern.
func LoadFiles(root string) ([]LoadedFile, error) {
	var files []LoadedFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxLoadableFileSize {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, LoadedFile{
			Path:    strings.ReplaceAll(rel, string(filepath.Separator), "/"),
			Content: string(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk worktree %s: %w", root, err)
	}
	return files, nil
}
