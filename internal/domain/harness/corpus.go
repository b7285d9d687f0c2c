package harness

import (
	_ "embed"
	"fmt"

	"github.com/goccy/go-yaml"
)

// TestCase is one labeled sample
type TestCase struct {
	Name          string `json:"name" yaml:"name" toml:"name"`
	Code          string `json:"code" yaml:"code" toml:"code"`
	ExpectBlocked bool   `json:"expect_blocked" yaml:"expect_blocked" toml:"expect_blocked"`
	Category      string `json:"category" yaml:"category" toml:"category"`
	Severity      string `json:"severity,omitempty" yaml:"severity,omitempty" toml:"severity,omitempty"`
	Description   string `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
}

// corpusFile is the on-disk layout shared by the built-in corpus and
// user-supplied case files. Cases in the malicious and benign lists get
// their label from the list; entries under cases carry their own.
type corpusFile struct {
	Malicious []TestCase `json:"malicious" yaml:"malicious" toml:"malicious"`
	Benign    []TestCase `json:"benign" yaml:"benign" toml:"benign"`
	Cases     []TestCase `json:"cases" yaml:"cases" toml:"cases"`
}

func (f corpusFile) flatten() []TestCase {
	out := make([]TestCase, 0, len(f.Malicious)+len(f.Benign)+len(f.Cases))
	for _, tc := range f.Malicious {
		tc.ExpectBlocked = true
		out = append(out, tc)
	}
	for _, tc := range f.Benign {
		tc.ExpectBlocked = false
		out = append(out, tc)
	}
	return append(out, f.Cases...)
}

//go:embed corpus/reference.yaml
var referenceCorpus []byte

var reference = func() corpusFile {
	var f corpusFile
	if err := yaml.Unmarshal(referenceCorpus, &f); err != nil {
		panic(fmt.Sprintf("harness: reference corpus: %v", err))
	}
	for i := range f.Malicious {
		f.Malicious[i].ExpectBlocked = true
	}
	return f
}()

// MaliciousCorpus returns the built-in samples that must be blocked.
func MaliciousCorpus() []TestCase {
	return append([]TestCase(nil), reference.Malicious...)
}

// BenignCorpus returns the built-in samples that must be admitted.
func BenignCorpus() []TestCase {
	return append([]TestCase(nil), reference.Benign...)
}
