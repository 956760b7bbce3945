package build

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

// cbase is the fixed native source template: build driver, core simulation
// sources and the per-model template directory.
//
//go:embed all:cbase
var cbase embed.FS

// materialize copies the embedded template tree into dst.
func materialize(dst string) error {
	return fs.WalkDir(cbase, "cbase", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel("cbase", path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := cbase.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
