package submission

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/saintfish/chardet"
)

// IntakeError rejects uploaded bytes that are not UTF-8 text.
type IntakeError struct {
	MIME    string
	Charset string
}

func (e *IntakeError) Error() string {
	if e.Charset != "" {
		return fmt.Sprintf("submission must be UTF-8 text, detected %s (%s)", e.Charset, e.MIME)
	}
	return fmt.Sprintf("submission must be text, detected %s", e.MIME)
}

// Intake checks raw uploaded bytes and returns them as a string.
func Intake(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}

	mtype := mimetype.Detect(data)
	if !isText(mtype.String()) {
		return "", &IntakeError{MIME: mtype.String()}
	}

	if !utf8.Valid(data) {
		return "", &IntakeError{MIME: mtype.String(), Charset: detectCharset(data)}
	}
	return string(data), nil
}

func isText(mime string) bool {
	return strings.HasPrefix(mime, "text/") ||
		strings.HasPrefix(mime, "application/json") ||
		strings.HasPrefix(mime, "application/xml") ||
		strings.HasPrefix(mime, "application/javascript")
}

func detectCharset(data []byte) string {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "unknown"
	}
	return strings.ToLower(result.Charset)
}
