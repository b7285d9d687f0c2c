package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// LoadCases reads extra cases from a .yaml, .yml, .toml or .json file.
func LoadCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}

	var f corpusFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	case ".toml":
		err = toml.Unmarshal(data, &f)
	case ".json":
		err = sonic.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("corpus %s: unsupported format %q", path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	cases := f.flatten()
	for i, tc := range cases {
		if tc.Name == "" {
			return nil, fmt.Errorf("corpus %s: case %d has no name", path, i)
		}
	}
	return cases, nil
}

// LoadDir loads every file under root matching a doublestar pattern such
// as "**/*.yaml". Files are read in lexical order.
func LoadDir(root, pattern string) ([]TestCase, error) {
	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %s in %s: %w", pattern, root, err)
	}
	sort.Strings(matches)

	var all []TestCase
	for _, m := range matches {
		cases, err := LoadCases(filepath.Join(root, filepath.FromSlash(m)))
		if err != nil {
			return nil, err
		}
		all = append(all, cases...)
	}
	return all, nil
}
