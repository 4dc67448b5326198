package analyze

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"medlens/internal/domain/entity"
)

// stageFunc adapts a function to the Stage interface.
type stageFunc func(ctx context.Context, identity string, inputs map[string]string) (string, error)

func (f stageFunc) Do(ctx context.Context, identity string, inputs map[string]string) (string, error) {
	return f(ctx, identity, inputs)
}

func staticStage(output string) Stage {
	return stageFunc(func(context.Context, string, map[string]string) (string, error) {
		return output, nil
	})
}

func failingStage(err error) Stage {
	return stageFunc(func(context.Context, string, map[string]string) (string, error) {
		return "", err
	})
}

const articleText = "Exercise reduces cardiovascular risk. A randomized cohort of 2,000 adults was followed for five years."

func happyStages() Stages {
	return Stages{
		Fetch:       staticStage(articleText),
		Summarize:   staticStage("Regular exercise lowers the risk of heart disease."),
		Terminology: staticStage(`{"randomized cohort": "a study group assigned by chance"}`),
		Quality:     staticStage(`{"study_type": "cohort", "sample_size": 2000, "score": 4}`),
	}
}

func urlMessage(t *testing.T) *entity.Message {
	t.Helper()
	msg, err := entity.NewMessage("", entity.AgentUser, entity.AgentArticleFetcher,
		entity.KindURL, map[string]any{"url": "https://pubmed.ncbi.nlm.nih.gov/12345"})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	return msg
}

func TestNewService_Validation(t *testing.T) {
	stages := happyStages()

	if _, err := NewService(stages); err != nil {
		t.Errorf("NewService() error = %v", err)
	}

	stages.Terminology = nil
	if _, err := NewService(stages); err == nil {
		t.Error("NewService() with missing stage should fail")
	}
}

func TestService_Analyze_Success(t *testing.T) {
	service, err := NewService(happyStages())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	result, err := service.Analyze(context.Background(), "caller", "conv-1", "https://pubmed.ncbi.nlm.nih.gov/12345")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if result.ConversationID != "conv-1" {
		t.Errorf("ConversationID = %q, want %q", result.ConversationID, "conv-1")
	}
	if result.Summary == "" {
		t.Error("Summary should not be empty")
	}
	if got := result.Terminology["randomized cohort"]; got != "a study group assigned by chance" {
		t.Errorf("Terminology[randomized cohort] = %q", got)
	}
	if got, ok := result.QualityAssessment["score"].(float64); !ok || got != 4 {
		t.Errorf("QualityAssessment[score] = %v, want 4", result.QualityAssessment["score"])
	}
}

func TestService_Analyze_LogsStateProgression(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	service, err := NewService(happyStages())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if _, err := service.Analyze(context.Background(), "caller", "conv-1", "https://pubmed.ncbi.nlm.nih.gov/12345"); err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	logs := buf.String()
	for _, state := range []State{StateReceived, StateAnalyzing, StateCompleted} {
		if !strings.Contains(logs, `"state":"`+string(state)+`"`) {
			t.Errorf("logs should record state %q:\n%s", state, logs)
		}
	}
}

func TestService_Process_BuildsResponseEnvelope(t *testing.T) {
	service, err := NewService(happyStages())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	in := urlMessage(t)
	out, err := service.Process(context.Background(), "caller", in)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if out.Kind != entity.KindAnalysisResult {
		t.Errorf("Kind = %q, want %q", out.Kind, entity.KindAnalysisResult)
	}
	if out.ConversationID != in.ConversationID {
		t.Errorf("ConversationID = %q, want request's %q", out.ConversationID, in.ConversationID)
	}
	if out.Sender != entity.AgentResponseFormatter {
		t.Errorf("Sender = %q, want %q", out.Sender, entity.AgentResponseFormatter)
	}
	if out.Recipient != entity.AgentUser {
		t.Errorf("Recipient = %q, want %q", out.Recipient, entity.AgentUser)
	}
	if out.MessageID == in.MessageID {
		t.Error("response must carry its own MessageID")
	}
	if _, ok := out.Payload["quality_assessment"]; !ok {
		t.Error("payload should carry quality_assessment")
	}
}

func TestService_Process_RejectsNonURLPayload(t *testing.T) {
	service, err := NewService(happyStages())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	msg, err := entity.NewMessage("", entity.AgentUser, entity.AgentSummarizer,
		entity.KindArticleText, map[string]any{"text": "already fetched"})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	_, err = service.Process(context.Background(), "caller", msg)
	if !errors.Is(err, entity.ErrUnsupportedPayload) {
		t.Errorf("Process() error = %v, want ErrUnsupportedPayload", err)
	}
	if !errors.Is(err, entity.ErrInvalidInput) {
		t.Errorf("Process() error = %v, should classify as invalid input", err)
	}
}

func TestService_Analyze_FetchFailureSkipsAnalysis(t *testing.T) {
	var analysisCalls atomic.Int64
	counting := stageFunc(func(context.Context, string, map[string]string) (string, error) {
		analysisCalls.Add(1)
		return "{}", nil
	})

	notFound := &entity.NotFoundError{Resource: "article", Err: errors.New("HTTP 404")}
	service, err := NewService(Stages{
		Fetch:       failingStage(notFound),
		Summarize:   counting,
		Terminology: counting,
		Quality:     counting,
	})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = service.Analyze(context.Background(), "caller", "conv-1", "https://pubmed.ncbi.nlm.nih.gov/404")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Analyze() error = %v, want not-found", err)
	}
	if got := analysisCalls.Load(); got != 0 {
		t.Errorf("analysis stages invoked %d times after fetch failure, want 0", got)
	}
}

func TestService_Analyze_EmptyArticleFails(t *testing.T) {
	stages := happyStages()
	stages.Fetch = staticStage("   \n\t ")
	service, err := NewService(stages)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = service.Analyze(context.Background(), "caller", "conv-1", "https://www.cdc.gov/empty")
	if !errors.Is(err, entity.ErrNotFound) {
		t.Errorf("Analyze() error = %v, want not-found for empty article", err)
	}
}

func TestService_Analyze_StageFailureCancelsSiblings(t *testing.T) {
	stageErr := &entity.AnalysisError{Stage: StageSummarize, Err: errors.New("model refused")}

	siblingSawCancel := make(chan struct{}, 1)
	blocking := stageFunc(func(ctx context.Context, _ string, _ map[string]string) (string, error) {
		select {
		case <-ctx.Done():
			siblingSawCancel <- struct{}{}
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "{}", nil
		}
	})

	stages := happyStages()
	stages.Summarize = failingStage(stageErr)
	stages.Terminology = blocking
	service, err := NewService(stages)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = service.Analyze(context.Background(), "caller", "conv-1", "https://www.nejm.org/x")
	var analysisErr *entity.AnalysisError
	if !errors.As(err, &analysisErr) {
		t.Fatalf("Analyze() error = %v, want the failing stage's error", err)
	}

	select {
	case <-siblingSawCancel:
	case <-time.After(2 * time.Second):
		t.Error("sibling stage was not cancelled after failure")
	}
}

func TestService_Analyze_MalformedStageOutput(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Stages)
		wantStage string
	}{
		{
			name:      "terminology not json",
			mutate:    func(s *Stages) { s.Terminology = staticStage("here are the terms: ...") },
			wantStage: StageExplainTerminology,
		},
		{
			name:      "quality not an object",
			mutate:    func(s *Stages) { s.Quality = staticStage(`[1, 2, 3]`) },
			wantStage: StageAssessQuality,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stages := happyStages()
			tt.mutate(&stages)
			service, err := NewService(stages)
			if err != nil {
				t.Fatalf("NewService() error = %v", err)
			}

			_, err = service.Analyze(context.Background(), "caller", "conv-1", "https://www.who.int/x")
			var analysisErr *entity.AnalysisError
			if !errors.As(err, &analysisErr) {
				t.Fatalf("Analyze() error = %v, want *entity.AnalysisError", err)
			}
			if analysisErr.Stage != tt.wantStage {
				t.Errorf("AnalysisError.Stage = %q, want %q", analysisErr.Stage, tt.wantStage)
			}
		})
	}
}
