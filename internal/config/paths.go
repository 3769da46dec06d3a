package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxFilenameLength bounds filenames derived from a query.
const MaxFilenameLength = 127

var nonLetters = regexp.MustCompile(`[^A-Za-z]+`)

// FilenameFromQuery derives an output filename stem from the letters of
// query and the dates of the range, e.g. "IDEA_20210101_20210201".
// A maxLength of zero disables truncation.
func FilenameFromQuery(q string, start, end time.Time, maxLength int) string {
	name := strings.Trim(nonLetters.ReplaceAllString(q, "_"), "_")
	dates := start.Format("20060102") + "_" + end.Format("20060102")
	if maxLength > 0 {
		if limit := maxLength - len(dates); limit >= 0 && len(name) > limit {
			name = name[:limit]
		}
	}
	return name + "_" + dates
}

// OutputPaths holds the files written by one run.
type OutputPaths struct {
	Issues     string
	Activities string
	Manifest   string
}

// DeriveOutputPaths splits filename into root and extension (default .json)
// and returns root.issues<ext>, root.activities<ext> and root.manifest.json.
// compressionExt, if non-empty, is appended to the two data files.
func DeriveOutputPaths(filename, compressionExt string) OutputPaths {
	ext := filepath.Ext(filename)
	root := strings.TrimSuffix(filename, ext)
	if ext == "" {
		ext = ".json"
	}
	return OutputPaths{
		Issues:     root + ".issues" + ext + compressionExt,
		Activities: root + ".activities" + ext + compressionExt,
		Manifest:   root + ".manifest.json",
	}
}

// ReadIssueIDs reads one issue id per line, skipping blank lines and lines
// starting with '#'.
func ReadIssueIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open issue id file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read issue id file %s: %w", path, err)
	}
	return ids, nil
}
