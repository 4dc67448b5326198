// Package entity defines the domain model for the analysis pipeline:
// the message envelope passed between pipeline stages and the error
// taxonomy used to classify failures.
package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PayloadKind tags the shape of a Message payload.
type PayloadKind string

// Recognized payload kinds, one per pipeline artifact.
const (
	KindURL               PayloadKind = "url"
	KindArticleText       PayloadKind = "article_text"
	KindSummary           PayloadKind = "summary"
	KindTerminology       PayloadKind = "terminology"
	KindQualityAssessment PayloadKind = "quality_assessment"
	KindAnalysisResult    PayloadKind = "analysis_result"
)

// Agent names used as message senders/recipients.
const (
	AgentUser              = "UserAgent"
	AgentArticleFetcher    = "ArticleFetcherAgent"
	AgentSummarizer        = "SummarizerAgent"
	AgentTerminology       = "TerminologyAgent"
	AgentQualityAssessor   = "QualityAssessorAgent"
	AgentResponseFormatter = "ResponseFormatterAgent"
)

// requiredField maps each payload kind to the field that must be present
// in the payload for the message to be well formed.
var requiredField = map[PayloadKind]string{
	KindURL:               "url",
	KindArticleText:       "text",
	KindSummary:           "summary",
	KindTerminology:       "terminology",
	KindQualityAssessment: "quality_assessment",
	KindAnalysisResult:    "summary",
}

// Message is the immutable envelope passed between pipeline stages.
//
// A message is created once by the stage that produces it and discarded
// after the next stage consumes it; it is never mutated or persisted
// beyond the lifetime of the request. All stages of one request share a
// ConversationID, while each stage output carries its own MessageID.
type Message struct {
	MessageID      string         `json:"message_id"`
	ConversationID string         `json:"conversation_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Sender         string         `json:"sender_agent"`
	Recipient      string         `json:"recipient_agent"`
	Kind           PayloadKind    `json:"payload_type"`
	Payload        map[string]any `json:"payload"`
}

// NewMessage constructs a validated Message.
//
// An empty conversationID starts a new conversation with a fresh UUID.
// The payload must carry the field required by the declared kind; a
// mismatch between kind and payload shape is a ValidationError.
func NewMessage(conversationID, sender, recipient string, kind PayloadKind, payload map[string]any) (*Message, error) {
	field, ok := requiredField[kind]
	if !ok {
		return nil, &ValidationError{
			Field:   "payload_type",
			Message: fmt.Sprintf("unrecognized payload kind %q", kind),
		}
	}
	if sender == "" {
		return nil, &ValidationError{Field: "sender_agent", Message: "must not be empty"}
	}
	if recipient == "" {
		return nil, &ValidationError{Field: "recipient_agent", Message: "must not be empty"}
	}
	if payload == nil {
		return nil, &ValidationError{Field: "payload", Message: "must not be nil"}
	}
	if _, ok := payload[field]; !ok {
		return nil, &ValidationError{
			Field:   "payload",
			Message: fmt.Sprintf("kind %q requires payload field %q", kind, field),
		}
	}

	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	return &Message{
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		Timestamp:      time.Now().UTC(),
		Sender:         sender,
		Recipient:      recipient,
		Kind:           kind,
		Payload:        payload,
	}, nil
}

// StringField returns the named payload field as a string.
// Missing or non-string fields yield a ValidationError.
func (m *Message) StringField(name string) (string, error) {
	v, ok := m.Payload[name]
	if !ok {
		return "", &ValidationError{
			Field:   "payload." + name,
			Message: "required field is missing",
		}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ValidationError{
			Field:   "payload." + name,
			Message: fmt.Sprintf("expected string, got %T", v),
		}
	}
	return s, nil
}
