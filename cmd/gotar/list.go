package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/elliotnunn/gotar/tar"
)

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	archivePath := fs.String("f", "", "archive path")
	verbose := fs.Bool("v", false, "show mode/owner/size like ls -l")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *archivePath == "" {
		return fmt.Errorf("list: -f is required")
	}

	f, err := os.Open(*archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if *verbose {
			fmt.Printf("%s %8d/%-8d %10d %s %s\n",
				hdr.FileInfo().Mode(), hdr.Uid, hdr.Gid, hdr.Size,
				hdr.ModTime.Format("2006-01-02 15:04"), hdr.Name)
		} else {
			fmt.Println(hdr.Name)
		}
	}
}
