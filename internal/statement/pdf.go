package statement

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	maxTextBytes     = 100 * 1024 // cap for extracted statement text
	defaultMaxTokens = 8192
	minMaxTokens     = 2048
	maxMaxTokens     = 32768
	tokenRoundTo     = 1024
)

// IsPDF reports whether data starts with the PDF magic bytes. The upload
// boundary checks this before any parsing happens.
func IsPDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}

// ExtractText converts a PDF byte stream into plain text, preserving the
// visual line structure: positioned text runs are concatenated in document
// order and a newline is inserted whenever the vertical coordinate changes
// between consecutive runs. Runs are taken raw from the content stream so
// distinct columns are never merged into one token.
//
// The pdf library can panic on malformed input, so the whole walk is wrapped
// in recover and reported as an extraction failure.
func ExtractText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PipelineError{
				Code:    ErrCodeExtractionFailed,
				Message: fmt.Sprintf("panic during PDF parse: %v", r),
			}
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return "", &PipelineError{
			Code:    ErrCodeExtractionFailed,
			Message: "open PDF reader",
			Cause:   rerr,
		}
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		lastY := 0.0
		for i, run := range content.Text {
			if i > 0 && run.Y != lastY {
				b.WriteByte('\n')
			}
			b.WriteString(run.S)
			lastY = run.Y
		}
		if len(content.Text) > 0 {
			b.WriteByte('\n')
		}
		if b.Len() > maxTextBytes {
			break
		}
	}

	if b.Len() == 0 {
		return "", &PipelineError{
			Code:    ErrCodeExtractionFailed,
			Message: "no extractable text in document",
		}
	}
	return b.String(), nil
}

// dateLineRe and amountLineRe identify lines that look like transactions,
// used only to budget the model's output tokens.
var dateLineRe = regexp.MustCompile(
	`(?i)` +
		`(?:\d{1,2}[/\-\.]\d{1,2}[/\-\.]\d{2,4})` +
		`|(?:\d{4}[/\-]\d{2}[/\-]\d{2})` +
		`|(?:(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?\s+\d{1,2})` +
		`|(?:\d{1,2}\s+(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]*\.?)`,
)

var amountLineRe = regexp.MustCompile(
	`[\$\-]?\d{1,3}(?:[,]\d{3})*(?:\.\d{1,2})` +
		`|\d+\.\d{2}`,
)

// nonEmptyLines splits extracted text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

// countTransactionLines counts lines containing both a date-like pattern and a
// monetary amount.
func countTransactionLines(lines []string) int {
	count := 0
	for _, line := range lines {
		if dateLineRe.MatchString(line) && amountLineRe.MatchString(line) {
			count++
		}
	}
	return count
}

// estimateOutputTokens recommends a maxOutputTokens budget from the estimated
// transaction count: (150 + txCount * 100) * 1.5, clamped to [2048, 32768] and
// rounded up to the nearest 1024.
func estimateOutputTokens(txCount int) int {
	if txCount <= 0 {
		return defaultMaxTokens
	}

	tokens := int(float64(150+txCount*100) * 1.5)
	if tokens < minMaxTokens {
		tokens = minMaxTokens
	}
	if tokens > maxMaxTokens {
		tokens = maxMaxTokens
	}
	if tokens%tokenRoundTo != 0 {
		tokens = ((tokens / tokenRoundTo) + 1) * tokenRoundTo
	}
	return tokens
}
