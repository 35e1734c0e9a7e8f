package main

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/JonMunkholm/csvlint/internal/fetch"
)

// csvExtensions are the file names picked up when a directory is given.
var csvExtensions = map[string]bool{
	".csv": true,
	".tsv": true,
}

// skip tells the error callback to prune a subtree.
type skip struct{}

func (skip) Error() string { return "skip" }

// expandSources turns arguments into sources. URLs pass through; directories
// expand to the CSV files inside them (recursively when asked), sorted.
func expandSources(args []string, recursive bool) ([]fetch.Source, error) {
	var sources []fetch.Source
	for _, arg := range args {
		src := fetch.ParseSource(arg)
		if src.Kind() != fetch.KindPath || arg == "-" {
			sources = append(sources, src)
			continue
		}

		info, err := os.Stat(arg)
		if err != nil || !info.IsDir() {
			// Missing files are reported by the validator as not_found.
			sources = append(sources, src)
			continue
		}

		files, err := findCSVFiles(arg, recursive)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			sources = append(sources, fetch.Source{Path: f})
		}
	}
	return sources, nil
}

// findCSVFiles lists CSV files under dir.
func findCSVFiles(dir string, recursive bool) ([]string, error) {
	dir = filepath.Clean(dir)
	var files []string
	err := godirwalk.Walk(dir, &godirwalk.Options{
		Callback: func(ospath string, de *godirwalk.Dirent) error {
			isDir, err := de.IsDirOrSymlinkToDir()
			if err != nil {
				return err
			}
			if isDir {
				if ospath != dir && !recursive {
					return skip{}
				}
				return nil
			}
			if csvExtensions[strings.ToLower(filepath.Ext(ospath))] {
				files = append(files, ospath)
			}
			return nil
		},
		ErrorCallback: func(ospath string, err error) godirwalk.ErrorAction {
			if _, ok := errors.Cause(err).(skip); ok {
				return godirwalk.SkipNode
			}
			return godirwalk.Halt
		},
		Unsorted:            true,
		FollowSymbolicLinks: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error walking directory %s", dir)
	}
	sort.Strings(files)
	return files, nil
}
