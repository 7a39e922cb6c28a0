package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	includeSuffix = "-include.conf"
	excludeSuffix = "-exclude.conf"
)

// Lines that start with '#', ';' or whitespace are comments.
var uncommentedRe = regexp.MustCompile(`^[^#; \t]`)

// FilesBySuffix returns the conf files in dir matching *suffix.
func FilesBySuffix(dir, suffix string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("failed to glob %s: %w", dir, err)
	}
	return files, nil
}

// MergeFiles filters the uncommented, non-blank lines of the given
// files, sorts them, and writes them to one temporary file, returning
// its path. The caller owns the file's removal.
func MergeFiles(files []string) (string, error) {
	var lines []string
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if uncommentedRe.MatchString(line) {
				lines = append(lines, line)
			}
		}
	}
	sort.Strings(lines)

	tmp, err := os.CreateTemp("", "rbackup-*.conf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(tmp, line); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			return "", fmt.Errorf("failed to write temp file: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	return tmp.Name(), nil
}

// MergeIncludeFiles merges the include conf files in dir into one
// temporary file for rsync's --files-from. The returned cleanup
// function removes the file and must be called on every exit path.
func MergeIncludeFiles(dir string) (path string, cleanup func(), err error) {
	return mergeBySuffix(dir, includeSuffix)
}

// MergeExcludeFiles merges the exclude conf files in dir into one
// temporary file for rsync's --exclude-from. The returned cleanup
// function removes the file and must be called on every exit path.
func MergeExcludeFiles(dir string) (path string, cleanup func(), err error) {
	return mergeBySuffix(dir, excludeSuffix)
}

func mergeBySuffix(dir, suffix string) (string, func(), error) {
	files, err := FilesBySuffix(dir, suffix)
	if err != nil {
		return "", nil, err
	}
	path, err := MergeFiles(files)
	if err != nil {
		return "", nil, err
	}
	return path, func() { os.Remove(path) }, nil
}
