package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed all:templates
var templateFS embed.FS

// copyTemplate copies an embedded template directory to targetDir. Existing
// files are kept unless force is set. It returns the files written and the
// files left alone, relative to targetDir.
func copyTemplate(templateName, targetDir string, force bool) (written, kept []string, err error) {
	root := path.Join("templates", templateName)

	err = fs.WalkDir(templateFS, root, func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel := name[len(root):]
		if rel == "" {
			return nil
		}
		rel = rel[1:]
		targetPath := filepath.Join(targetDir, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(targetPath, 0o750)
		}

		if !force {
			if _, err := os.Stat(targetPath); err == nil {
				kept = append(kept, rel)
				return nil
			}
		}

		content, err := templateFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(targetPath, content, 0o644); err != nil { //nolint:gosec // G306: project files are world-readable
			return err
		}
		written = append(written, rel)
		return nil
	})

	return written, kept, err
}
