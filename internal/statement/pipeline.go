// Package statement implements the bank-statement ingestion pipeline: PDF
// text extraction, LLM prompting, response sanitization and billing-cycle
// filtering. Output is candidate transactions only; nothing is persisted here.
package statement

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fintrackhq/fintrack/internal/cycle"
	"github.com/fintrackhq/fintrack/internal/model"
)

// completionTemperature favors consistent field formatting over creative
// phrasing, which matters for downstream JSON validity.
const completionTemperature = 0.1

// Pipeline orchestrates one statement upload end to end. Stages fail fast
// with typed errors; partial results are never returned.
type Pipeline struct {
	completer Completer
	retry     RetryConfig
	log       *logrus.Logger
	now       func() time.Time
	extract   func([]byte) (string, error)
}

// NewPipeline creates an ingestion pipeline around the given LLM boundary.
func NewPipeline(completer Completer, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	return &Pipeline{
		completer: completer,
		retry:     DefaultLLMRetryConfig,
		log:       log,
		now:       time.Now,
		extract:   ExtractText,
	}
}

// Ingest extracts candidate transactions for the user's current billing cycle
// from an uploaded PDF and returns them with the cycle that was applied, so
// callers report the same period the filter used. The cycle boundary is
// re-enforced in code even though the prompt already requests it; the model's
// adherence to date instructions cannot be trusted unconditionally.
func (p *Pipeline) Ingest(ctx context.Context, pdfBytes []byte, currencyID int, userID string, cycleStartDay int) (cycle.Cycle, []model.CandidateTransaction, error) {
	cyc, err := cycle.Resolve(cycleStartDay, p.now())
	if err != nil {
		return cycle.Cycle{}, nil, err
	}

	text, err := p.extract(pdfBytes)
	if err != nil {
		return cycle.Cycle{}, nil, err
	}

	lines := nonEmptyLines(text)
	budget := estimateOutputTokens(countTransactionLines(lines))
	p.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"text_bytes":   len(text),
		"lines":        len(lines),
		"token_budget": budget,
	}).Debug("statement text extracted")

	prompt := BuildPrompt(text, currencyID, userID, cycleStartDay)
	raw, err := WithRetry(ctx, p.retry, func(ctx context.Context) (string, error) {
		return p.completer.Complete(ctx, CompletionRequest{
			System:          prompt.System,
			User:            prompt.User,
			Temperature:     completionTemperature,
			MaxOutputTokens: budget,
		})
	})
	if err != nil {
		if _, ok := AsPipelineError(err); ok {
			return cycle.Cycle{}, nil, err
		}
		return cycle.Cycle{}, nil, &PipelineError{
			Code:    ErrCodeLLMUnavailable,
			Message: "completion failed",
			Cause:   err,
		}
	}

	candidates, err := ParseCandidates(Sanitize(raw))
	if err != nil {
		if pe, ok := AsPipelineError(err); ok {
			p.log.WithFields(logrus.Fields{
				"user_id": userID,
				"raw":     pe.RawResponse,
			}).Warn("model response unparsable after sanitization")
		}
		return cycle.Cycle{}, nil, err
	}

	kept := make([]model.CandidateTransaction, 0, len(candidates))
	dropped := 0
	for _, c := range candidates {
		d, derr := c.Date()
		if derr != nil || !cyc.Contains(d) {
			dropped++
			continue
		}
		if strings.TrimSpace(c.TransactionName) == "" {
			c.TransactionName = FallbackName(c.Code)
		}
		kept = append(kept, c)
	}

	p.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"candidates":   len(kept),
		"out_of_cycle": dropped,
		"period_start": cyc.PeriodStart.Format("2006-01-02"),
		"period_end":   cyc.PeriodEnd.Format("2006-01-02"),
	}).Info("statement ingested")

	return cyc, kept, nil
}
