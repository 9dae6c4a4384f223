// Package fetch downloads the upstream game-data tables that the pipelines
// use as templates and copies them into the data directory.
package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	getter "github.com/hashicorp/go-getter"
)

// DefaultFiles are the template tables taken from upstream. The other
// inputs (ship_kr.json, ship_skin.json, skill_icon.json) belong to the
// front-end itself.
var DefaultFiles = []string{
	"ship_skin_template.json",
	"ship_data_template.json",
	"skill_data_template.json",
	"name_code.json",
}

type Options struct {
	// Source is any go-getter address, e.g.
	// "git::https://github.com/AzurLaneTools/AzurLaneData.git//KR".
	Source  string
	DataDir string
	Files   []string
}

// Fetch downloads Source into a staging directory, finds each wanted file
// anywhere below it and copies it into DataDir. Nothing is copied unless
// every file was found.
func Fetch(ctx context.Context, opts Options, log *slog.Logger) error {
	staging, err := os.MkdirTemp("", "shipdata-fetch-")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	dst := filepath.Join(staging, "src")
	log.Info("start downloading", "source", opts.Source)
	client := &getter.Client{
		Ctx:  ctx,
		Src:  opts.Source,
		Dst:  dst,
		Mode: getter.ClientModeDir,
	}
	if err := client.Get(); err != nil {
		return fmt.Errorf("download %s: %w", opts.Source, err)
	}

	// Local sources are symlinked rather than copied.
	root, err := filepath.EvalSymlinks(dst)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dst, err)
	}
	found, err := locate(root, opts.Files)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", opts.DataDir, err)
	}
	for _, name := range opts.Files {
		if err := copyFile(found[name], filepath.Join(opts.DataDir, name)); err != nil {
			return err
		}
		log.Info("fetched", "file", name, "from", found[name])
	}
	return nil
}

// locate maps each wanted base name to the first matching file under root,
// in lexical walk order.
func locate(root string, names []string) (map[string]string, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	found := make(map[string]string, len(names))
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
		if want[d.Name()] {
			if _, ok := found[d.Name()]; !ok {
				found[d.Name()] = path
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	for _, n := range names {
		if _, ok := found[n]; !ok {
			return nil, fmt.Errorf("%s not found in source", n)
		}
	}
	return found, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
