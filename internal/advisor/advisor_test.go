package advisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/watson9049/billygold-website/internal/domain"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func replyWith(content string) *stubLLMClient {
	return &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: content}},
			},
		},
	}
}

func TestAskHappyPath(t *testing.T) {
	llm := replyWith("今日金價每台錢約一萬兩千七百元")
	store := NewMemoryStore()

	svc := NewAdvisorService(testTracer, llm, &stubPrices{}, store, "gpt-4o-mini", 20)

	reply, err := svc.Ask(context.Background(), "web:abc", "黃金今天多少錢？")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "今日金價每台錢約一萬兩千七百元" {
		t.Fatalf("unexpected reply %q", reply)
	}

	msgs, _ := store.RecentMessages(context.Background(), "web:abc", 10)
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("expected user and assistant messages, got %+v", msgs)
	}

	// system prompt + stored user question
	if got := len(llm.params.Messages); got != 2 {
		t.Fatalf("expected 2 messages sent to the model, got %d", got)
	}
	if llm.params.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", llm.params.Model)
	}
}

func TestAskEmptyMessage(t *testing.T) {
	svc := NewAdvisorService(testTracer, replyWith("x"), &stubPrices{}, NewMemoryStore(), "m", 20)
	if _, err := svc.Ask(context.Background(), "c", "   "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAskLLMError(t *testing.T) {
	llm := &stubLLMClient{err: errors.New("api down")}
	store := NewMemoryStore()
	svc := NewAdvisorService(testTracer, llm, &stubPrices{}, store, "gpt-4o-mini", 20)

	if _, err := svc.Ask(context.Background(), "c1", "如何保養金飾？"); err == nil {
		t.Fatal("expected error from LLM failure")
	}
	msgs, _ := store.RecentMessages(context.Background(), "c1", 10)
	if len(msgs) != 1 || msgs[0].Role != "user" {
		t.Fatalf("expected user message stored despite LLM error, got %+v", msgs)
	}
}

func TestAskNoChoices(t *testing.T) {
	llm := &stubLLMClient{response: &openai.ChatCompletion{}}
	svc := NewAdvisorService(testTracer, llm, &stubPrices{}, NewMemoryStore(), "m", 20)
	if _, err := svc.Ask(context.Background(), "c", "hi"); err == nil {
		t.Fatal("expected error for empty completion")
	}
}

func TestAskConversationStoreFailureNonFatal(t *testing.T) {
	llm := replyWith("response")
	store := &failingStore{err: errors.New("db down")}
	svc := NewAdvisorService(testTracer, llm, &stubPrices{}, store, "gpt-4o-mini", 20)

	reply, err := svc.Ask(context.Background(), "c", "test")
	if err != nil {
		t.Fatalf("store failure should be non-fatal, got: %v", err)
	}
	if reply != "response" {
		t.Fatalf("expected 'response', got %q", reply)
	}
	// The question still reaches the model without history.
	if got := len(llm.params.Messages); got != 2 {
		t.Fatalf("expected system prompt and question, got %d messages", got)
	}
}

func TestAskUsesHistory(t *testing.T) {
	llm := replyWith("ok")
	store := NewMemoryStore()
	svc := NewAdvisorService(testTracer, llm, &stubPrices{}, store, "m", 3)

	for i := 0; i < 3; i++ {
		if _, err := svc.Ask(context.Background(), "c", "question"); err != nil {
			t.Fatalf("ask %d: %v", i, err)
		}
	}
	// system prompt + history limited to 3
	if got := len(llm.params.Messages); got != 4 {
		t.Fatalf("expected 4 messages, got %d", got)
	}
}

func TestAskDefaultMaxHistory(t *testing.T) {
	svc := NewAdvisorService(testTracer, &stubLLMClient{}, &stubPrices{}, NewMemoryStore(), "m", 0)
	if svc.maxHistory != 20 {
		t.Fatalf("expected default maxHistory=20, got %d", svc.maxHistory)
	}
	svc = NewAdvisorService(testTracer, &stubLLMClient{}, &stubPrices{}, NewMemoryStore(), "m", 500)
	if svc.maxHistory != MaxStoredMessages {
		t.Fatalf("expected maxHistory capped at %d, got %d", MaxStoredMessages, svc.maxHistory)
	}
}

func TestMemoryStoreCapsConversation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < MaxStoredMessages+10; i++ {
		_ = store.AppendMessage(ctx, "c", "user", string(rune('a'+i%26)))
	}
	_ = store.AppendMessage(ctx, "other", "user", "x")

	msgs, _ := store.RecentMessages(ctx, "c", 0)
	if len(msgs) != MaxStoredMessages {
		t.Fatalf("expected %d messages, got %d", MaxStoredMessages, len(msgs))
	}
	if msgs[0].Content != string(rune('a'+10%26)) {
		t.Fatalf("oldest messages should be dropped first, got %q", msgs[0].Content)
	}
	if other, _ := store.RecentMessages(ctx, "other", 5); len(other) != 1 {
		t.Fatalf("conversations must be independent, got %d", len(other))
	}
}

// --- stubs ---

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error
	params   openai.ChatCompletionNewParams
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.params = params
	return s.response, s.err
}

type failingStore struct {
	err error
}

func (s *failingStore) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	return s.err
}

func (s *failingStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]domain.ConversationMessage, error) {
	return nil, s.err
}

type stubPrices struct{}

func (s *stubPrices) GetAllMetalPrices(ctx context.Context) domain.AllMetalPrices {
	now := time.Now()
	return domain.AllMetalPrices{
		Metals: map[domain.QuoteKind]domain.MetalPriceSnapshot{
			domain.KindGold:   {Kind: domain.KindGold, Price: 3311.96, ChangePercent: 40.94, Source: domain.SourceLive, FetchedAt: now},
			domain.KindSilver: {Kind: domain.KindSilver, Price: 38.2, ChangePercent: 34.04, Source: domain.SourceFallback, FetchedAt: now},
		},
		ExchangeRate: domain.Quote{Kind: domain.KindUSDTWD, Value: 31.8, Source: domain.SourceLive, FetchedAt: now},
		Timestamp:    now,
	}
}

func (s *stubPrices) CurrentGoldPrice(ctx context.Context) domain.CurrentGoldPrice {
	return domain.CurrentGoldPrice{
		Gold:            domain.Quote{Kind: domain.KindGold, Value: 3311.96, Source: domain.SourceLive},
		ExchangeRate:    domain.Quote{Kind: domain.KindUSDTWD, Value: 31.8, Source: domain.SourceLive},
		PricePerTaelTWD: 12697.97,
		Timestamp:       time.Now(),
	}
}
