package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/watson9049/billygold-website/internal/domain"
	"github.com/watson9049/billygold-website/pkg/logging"
)

// ErrEmptyMessage is returned for blank questions.
var ErrEmptyMessage = fmt.Errorf("%w: message must not be empty", domain.ErrInvalidInput)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// PriceQuerier provides live quotes for the advisor's context.
type PriceQuerier interface {
	GetAllMetalPrices(ctx context.Context) domain.AllMetalPrices
	CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice
}

// ConversationStore persists and retrieves conversation messages.
type ConversationStore interface {
	AppendMessage(ctx context.Context, conversationID, role, content string) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ConversationMessage, error)
}

// AdvisorService answers customer questions about gold, grounded on the
// engine's current quotes.
type AdvisorService struct {
	tracer     trace.Tracer
	log        *logrus.Entry
	llm        LLMClient
	prices     PriceQuerier
	convStore  ConversationStore
	model      string
	maxHistory int
}

func NewAdvisorService(
	tracer trace.Tracer,
	llm LLMClient,
	prices PriceQuerier,
	convStore ConversationStore,
	model string,
	maxHistory int,
) *AdvisorService {
	if maxHistory <= 0 {
		maxHistory = 20
	}
	if maxHistory > MaxStoredMessages {
		maxHistory = MaxStoredMessages
	}
	return &AdvisorService{
		tracer:     tracer,
		log:        logging.For("advisor"),
		llm:        llm,
		prices:     prices,
		convStore:  convStore,
		model:      model,
		maxHistory: maxHistory,
	}
}

func (s *AdvisorService) Ask(ctx context.Context, conversationID, userMessage string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.ask")
	defer span.End()
	span.SetAttributes(attribute.String("conversation_id", conversationID))

	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", ErrEmptyMessage
	}

	if err := s.convStore.AppendMessage(ctx, conversationID, "user", userMessage); err != nil {
		s.log.WithError(err).Warn("failed to store user message")
	}

	kinds := ExtractKinds(userMessage)
	systemPrompt := BuildSystemPrompt(s.gatherContext(ctx, kinds))

	history, err := s.convStore.RecentMessages(ctx, conversationID, s.maxHistory)
	if err != nil {
		s.log.WithError(err).Warn("failed to load conversation history")
		history = nil
	}
	// The store may not have kept the question; the model must still see it.
	if n := len(history); n == 0 || history[n-1].Role != "user" || history[n-1].Content != userMessage {
		history = append(history, domain.ConversationMessage{Role: "user", Content: userMessage})
	}

	reply, err := s.callLLM(ctx, s.buildMessages(systemPrompt, history))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}

	if err := s.convStore.AppendMessage(ctx, conversationID, "assistant", reply); err != nil {
		s.log.WithError(err).Warn("failed to store assistant reply")
	}
	return reply, nil
}

func (s *AdvisorService) gatherContext(ctx context.Context, kinds []domain.QuoteKind) string {
	ctx, span := s.tracer.Start(ctx, "advisor.gather-context")
	defer span.End()

	current := s.prices.CurrentGoldPrice(ctx)
	all := s.prices.GetAllMetalPrices(ctx)

	var metals []domain.MetalPriceSnapshot
	if len(kinds) == 0 {
		kinds = domain.Metals
	}
	for _, kind := range kinds {
		if snap, ok := all.Metals[kind]; ok {
			metals = append(metals, snap)
		}
	}
	return FormatMarketContext(current, metals)
}

func (s *AdvisorService) buildMessages(
	systemPrompt string,
	history []domain.ConversationMessage,
) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	messages = append(messages, openai.SystemMessage(systemPrompt))

	for _, msg := range history {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	return messages
}

func (s *AdvisorService) callLLM(
	ctx context.Context,
	messages []openai.ChatCompletionMessageParamUnion,
) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.llm-call")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", s.model),
		attribute.Int("llm.message_count", len(messages)),
	)

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model:    s.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}
