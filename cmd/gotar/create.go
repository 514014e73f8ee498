package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/elliotnunn/gotar/tar"
	"github.com/elliotnunn/gotar/tarfs"
)

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	archivePath := fs.String("f", "", "archive path")
	deterministic := fs.Bool("deterministic", false, "zero ownership/timestamps for reproducible output")
	followSymlinks := fs.Bool("h", false, "archive symlink targets rather than the links themselves")
	clampMtime := fs.String("clamp-mtime", "", "unix timestamp ceiling for modification times (takes precedence over -deterministic)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archivePath == "" {
		return fmt.Errorf("create: -f is required")
	}
	roots := fs.Args()
	if len(roots) == 0 {
		return fmt.Errorf("create: at least one directory or file is required")
	}

	f, err := os.Create(*archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	tw := tar.NewWriter(f)
	meta := tarfs.NewOSAdapter()
	mode := tar.HeaderModeComplete
	var clampAt time.Time
	switch {
	case *clampMtime != "":
		secs, err := strconv.ParseInt(*clampMtime, 10, 64)
		if err != nil {
			return fmt.Errorf("create: -clamp-mtime: %w", err)
		}
		mode = tar.HeaderModeClampMtime
		clampAt = time.Unix(secs, 0)
	case *deterministic:
		mode = tar.HeaderModeDeterministic
	}

	for _, root := range roots {
		name := filepath.ToSlash(filepath.Base(filepath.Clean(root)))
		fi, err := os.Lstat(root)
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if err := tarfs.AppendDirAll(tw, meta, root, name, mode, *followSymlinks, clampAt); err != nil {
				return err
			}
		} else {
			if err := tarfs.AppendFile(tw, meta, root, name, mode, clampAt); err != nil {
				return err
			}
		}
	}
	return tw.Close()
}
