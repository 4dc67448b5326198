package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medlens/internal/domain/entity"
	"medlens/internal/observability/metrics"

	"golang.org/x/sync/errgroup"
)

// Stage names, used for cache fingerprints, logs, and metrics.
const (
	StageFetchArticle       = "fetch_article"
	StageSummarize          = "summarize"
	StageExplainTerminology = "explain_terminology"
	StageAssessQuality      = "assess_study_quality"
)

// Stages bundles the four resilient stage executors the pipeline runs.
type Stages struct {
	Fetch       Stage
	Summarize   Stage
	Terminology Stage
	Quality     Stage
}

// Service orchestrates the analysis pipeline: fetch the article, then
// run the three analysis stages concurrently and assemble the outputs.
// The first terminal stage failure cancels the remaining stages; the
// pipeline never returns a partial result.
type Service struct {
	stages Stages
}

// NewService creates the pipeline orchestrator.
func NewService(stages Stages) (*Service, error) {
	if stages.Fetch == nil || stages.Summarize == nil || stages.Terminology == nil || stages.Quality == nil {
		return nil, fmt.Errorf("analyze: all four stages must be provided")
	}
	return &Service{stages: stages}, nil
}

// Process runs the pipeline for an incoming message envelope and
// returns the formatted response envelope.
//
// Only url payloads are accepted; anything else is ErrUnsupportedPayload
// wrapped in a ValidationError so callers can map it to a client error.
func (s *Service) Process(ctx context.Context, identity string, msg *entity.Message) (*entity.Message, error) {
	if msg.Kind != entity.KindURL {
		return nil, fmt.Errorf("%w: got %q: %w",
			entity.ErrUnsupportedPayload, msg.Kind, entity.ErrInvalidInput)
	}
	url, err := msg.StringField("url")
	if err != nil {
		return nil, err
	}

	result, err := s.Analyze(ctx, identity, msg.ConversationID, url)
	if err != nil {
		return nil, err
	}

	return entity.NewMessage(
		result.ConversationID,
		entity.AgentResponseFormatter,
		msg.Sender,
		entity.KindAnalysisResult,
		map[string]any{
			"url":                result.URL,
			"summary":            result.Summary,
			"terminology":        result.Terminology,
			"quality_assessment": result.QualityAssessment,
		},
	)
}

// Analyze runs the pipeline for a URL and returns the assembled result.
func (s *Service) Analyze(ctx context.Context, identity, conversationID, url string) (*Result, error) {
	logger := slog.Default()
	start := time.Now()

	logger.Info("analysis pipeline started",
		slog.String("conversation_id", conversationID),
		slog.String("state", string(StateReceived)),
		slog.String("url", url))

	articleText, err := s.runStage(ctx, identity, StageFetchArticle, map[string]string{"url": url})
	if err != nil {
		s.fail(ctx, logger, conversationID, StateFetching, err)
		return nil, err
	}
	if strings.TrimSpace(articleText) == "" {
		err := &entity.NotFoundError{Resource: "article text", Err: ErrEmptyArticle}
		s.fail(ctx, logger, conversationID, StateFetched, err)
		return nil, err
	}

	logger.Info("article fetched",
		slog.String("conversation_id", conversationID),
		slog.String("state", string(StateAnalyzing)),
		slog.Int("article_length", len(articleText)))

	// The three analysis stages are independent; run them concurrently
	// and let the first failure cancel the siblings.
	inputs := map[string]string{"article_text": articleText}
	var summary, terminologyRaw, qualityRaw string

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		out, stageErr := s.runStage(egCtx, identity, StageSummarize, inputs)
		if stageErr != nil {
			return stageErr
		}
		summary = out
		return nil
	})
	eg.Go(func() error {
		out, stageErr := s.runStage(egCtx, identity, StageExplainTerminology, inputs)
		if stageErr != nil {
			return stageErr
		}
		terminologyRaw = out
		return nil
	})
	eg.Go(func() error {
		out, stageErr := s.runStage(egCtx, identity, StageAssessQuality, inputs)
		if stageErr != nil {
			return stageErr
		}
		qualityRaw = out
		return nil
	})
	if err := eg.Wait(); err != nil {
		s.fail(ctx, logger, conversationID, StateAnalyzing, err)
		return nil, err
	}

	terminology, err := parseTerminology(terminologyRaw)
	if err != nil {
		s.fail(ctx, logger, conversationID, StateAnalyzing, err)
		return nil, err
	}
	quality, err := parseQuality(qualityRaw)
	if err != nil {
		s.fail(ctx, logger, conversationID, StateAnalyzing, err)
		return nil, err
	}

	metrics.RecordPipelineRequest("completed")
	logger.Info("analysis pipeline completed",
		slog.String("conversation_id", conversationID),
		slog.String("state", string(StateCompleted)),
		slog.Int("terms_explained", len(terminology)),
		slog.Duration("duration", time.Since(start)))

	return &Result{
		ConversationID:    conversationID,
		URL:               url,
		Summary:           summary,
		Terminology:       terminology,
		QualityAssessment: quality,
	}, nil
}

// runStage executes one stage through its resilient executor and
// records its duration.
func (s *Service) runStage(ctx context.Context, identity, stage string, inputs map[string]string) (string, error) {
	var executor Stage
	switch stage {
	case StageFetchArticle:
		executor = s.stages.Fetch
	case StageSummarize:
		executor = s.stages.Summarize
	case StageExplainTerminology:
		executor = s.stages.Terminology
	case StageAssessQuality:
		executor = s.stages.Quality
	default:
		return "", fmt.Errorf("unknown stage %q", stage)
	}

	start := time.Now()
	out, err := executor.Do(ctx, identity, inputs)
	metrics.RecordStageDuration(stage, time.Since(start))
	return out, err
}

func (s *Service) fail(ctx context.Context, logger *slog.Logger, conversationID string, at State, err error) {
	metrics.RecordPipelineRequest("failed")
	logger.ErrorContext(ctx, "analysis pipeline failed",
		slog.String("conversation_id", conversationID),
		slog.String("state", string(StateFailed)),
		slog.String("failed_during", string(at)),
		slog.Any("error", err))
}

// parseTerminology decodes the terminology stage's JSON output. The
// model is instructed to return a flat object of term to explanation;
// anything else is a malformed stage output, not a transport failure.
func parseTerminology(raw string) (map[string]string, error) {
	var terms map[string]string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return nil, &entity.AnalysisError{
			Stage: StageExplainTerminology,
			Err:   fmt.Errorf("malformed terminology output: %w", err),
		}
	}
	return terms, nil
}

// parseQuality decodes the quality stage's JSON output.
func parseQuality(raw string) (map[string]any, error) {
	var assessment map[string]any
	if err := json.Unmarshal([]byte(raw), &assessment); err != nil {
		return nil, &entity.AnalysisError{
			Stage: StageAssessQuality,
			Err:   fmt.Errorf("malformed quality assessment output: %w", err),
		}
	}
	return assessment, nil
}
