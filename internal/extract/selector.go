package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/deliverynotes/constants"
	"github.com/joseph-ayodele/deliverynotes/internal/common"
	"github.com/joseph-ayodele/deliverynotes/internal/entity"
	"github.com/joseph-ayodele/deliverynotes/internal/llm"
)

// State of one document inside the selector.
type State string

const (
	StateVision          State = "vision"
	StateTextRecognition State = "text_recognition"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

type Config struct {
	ForceOCR       bool          // skip vision entirely
	AllowFallback  bool          // vision failure moves to text recognition
	AttemptTimeout time.Duration // per strategy attempt; 0 = none
}

// Attempt records one strategy run.
type Attempt struct {
	Strategy constants.Strategy
	Err      error
	Elapsed  time.Duration
}

// Outcome is the terminal state for a document.
type Outcome struct {
	State        State
	Result       entity.ExtractionResult
	Attempts     []Attempt
	FallbackUsed bool
}

// Err is nil unless the outcome is Failed.
func (o Outcome) Err() error {
	if o.State != StateFailed {
		return nil
	}
	errs := []error{common.ErrExtractionFailed}
	for _, a := range o.Attempts {
		errs = append(errs, fmt.Errorf("%s: %w", a.Strategy, a.Err))
	}
	return common.NewAppError(common.CodeExtractionFailed, "all strategies failed", errors.Join(errs...))
}

// Selector runs vision first and text recognition as the fallback.
type Selector struct {
	vision Strategy
	text   Strategy
	cfg    Config
	logger *slog.Logger
}

// NewSelector builds the state machine. Either strategy may be nil; a nil vision
// strategy behaves like ForceOCR.
func NewSelector(vision, text Strategy, cfg Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{vision: vision, text: text, cfg: cfg, logger: logger}
}

func (s *Selector) initial() State {
	if s.cfg.ForceOCR || s.vision == nil {
		return StateTextRecognition
	}
	return StateVision
}

// Run drives one document to Done or Failed.
func (s *Selector) Run(ctx context.Context, doc entity.SourceDocument) Outcome {
	out := Outcome{State: s.initial()}
	for {
		switch out.State {
		case StateVision:
			res, err := s.attempt(ctx, s.vision, doc, &out)
			switch {
			case err == nil:
				out.Result, out.State = res, StateDone
			case s.cfg.AllowFallback && s.text != nil && ctx.Err() == nil:
				s.logger.Warn("extract.fallback",
					"name", doc.Name,
					"fingerprint", doc.Fingerprint,
					"from", constants.StrategyVision,
					"to", constants.StrategyTextRecognition,
					"kind", llm.KindOf(err),
				)
				out.State = StateTextRecognition
			default:
				out.State = StateFailed
			}

		case StateTextRecognition:
			if s.text == nil {
				out.State = StateFailed
				continue
			}
			res, err := s.attempt(ctx, s.text, doc, &out)
			if err != nil {
				out.State = StateFailed
				continue
			}
			out.Result, out.State = res, StateDone
			out.FallbackUsed = len(out.Attempts) > 1

		case StateDone:
			return out

		case StateFailed:
			s.logger.Error("extract.failed",
				"name", doc.Name,
				"fingerprint", doc.Fingerprint,
				"attempts", len(out.Attempts),
				"error", out.Err(),
			)
			return out
		}
	}
}

func (s *Selector) attempt(ctx context.Context, st Strategy, doc entity.SourceDocument, out *Outcome) (entity.ExtractionResult, error) {
	actx := ctx
	if s.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := st.Extract(actx, doc)
	if err == nil && actx.Err() != nil {
		err = actx.Err()
	}
	elapsed := time.Since(start)
	out.Attempts = append(out.Attempts, Attempt{Strategy: st.Name(), Err: err, Elapsed: elapsed})

	if err != nil {
		s.logger.Warn("extract.attempt.failed",
			"name", doc.Name,
			"strategy", st.Name(),
			"kind", llm.KindOf(err),
			"error", err,
			"elapsed_ms", elapsed.Milliseconds(),
		)
		return entity.ExtractionResult{}, err
	}
	res.Strategy = st.Name()
	s.logger.Info("extract.attempt.ok",
		"name", doc.Name,
		"strategy", st.Name(),
		"method", res.Method,
		"elapsed_ms", elapsed.Milliseconds(),
	)
	return res, nil
}
