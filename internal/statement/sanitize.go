package statement

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/fintrackhq/fintrack/internal/model"
)

var (
	// Control characters except \t, \n and \r, which the whitespace pass
	// collapses into spaces.
	controlCharRe = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

// Sanitize repairs near-JSON model output into a syntactically valid array.
// The model frequently wraps output in markdown fences, pretty-prints with
// newlines inside string values, or gets cut off mid-object at the token
// limit; each repair step below targets one of those failure modes, applied
// in order:
//
//  1. strip markdown code-fence delimiters
//  2. substitute the timestamp placeholder with the real current time
//  3. strip control characters
//  4. collapse newlines/tabs/whitespace runs into single spaces
//  5. repair missing leading "[" / trailing "]"
//  6. truncate after the last "}", discarding a trailing incomplete record
func Sanitize(raw string) string {
	return sanitizeAt(raw, time.Now().UTC())
}

func sanitizeAt(raw string, now time.Time) string {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.ReplaceAll(s, TimestampPlaceholder, now.Format(time.RFC3339))
	s = controlCharRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))

	if !strings.HasPrefix(s, "[") {
		s = "[" + s
	}
	if !strings.HasSuffix(s, "]") {
		s += "]"
	}
	if i := strings.LastIndex(s, "}"); i != -1 {
		s = s[:i+1] + "]"
	}
	return s
}

// ParseCandidates unmarshals sanitized model output. On failure the sanitized
// text is retained on the error for diagnostics; no automatic retry happens.
func ParseCandidates(sanitized string) ([]model.CandidateTransaction, error) {
	var candidates []model.CandidateTransaction
	if err := json.Unmarshal([]byte(sanitized), &candidates); err != nil {
		return nil, &PipelineError{
			Code:        ErrCodeUnparsableResponse,
			Message:     "model output is not a JSON array after sanitization",
			RawResponse: sanitized,
			Cause:       err,
		}
	}
	return candidates, nil
}
