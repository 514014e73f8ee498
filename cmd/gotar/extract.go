package main

import (
	"flag"
	"fmt"
	iofs "io/fs"
	"os"

	"github.com/elliotnunn/gotar/tar"
	"github.com/elliotnunn/gotar/tarunpack"
)

func runExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	archivePath := fs.String("f", "", "archive path")
	dest := fs.String("C", ".", "destination directory")
	preservePerms := fs.Bool("p", false, "preserve permissions")
	preserveOwner := fs.Bool("o", false, "preserve ownership (requires privilege)")
	mask := fs.Uint("mask", 0, "octal mode bits to clear on every extracted entry (umask analogue)")
	overwrite := fs.Bool("overwrite", false, "allow overwriting existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archivePath == "" {
		return fmt.Errorf("extract: -f is required")
	}

	f, err := os.Open(*archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	tr := tar.NewReader(f)
	res, err := tarunpack.Unpack(tr, tarunpack.Options{
		Root:                 *dest,
		PreservePermissions:  *preservePerms,
		Mask:                 iofs.FileMode(*mask),
		PreserveOwnerships:   *preserveOwner,
		PreserveMtime:        true,
		Overwrite:            *overwrite,
		SkipUnsupportedTypes: true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("extracted %d files, %d dirs, %d symlinks, %d special files (%d skipped)\n",
		res.FilesWritten, res.DirsWritten, res.SymlinksMade, res.SpecialsMade, len(res.Skipped))
	return nil
}
