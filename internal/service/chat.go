package service

import (
	"context"
	"fmt"
	"log"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/openai"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
)

// maxHistoryTurns bounds how much client-resent history enters the prompt.
const maxHistoryTurns = 12

// ChatCompleter is the black-box text generator behind the assistant.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []openai.ChatMessage) (string, error)
}

// SettingsStore loads the retrieval settings snapshot for a request.
type SettingsStore interface {
	GetRAGSettings(ctx context.Context) (domain.RAGSettings, error)
}

// ChatInput is one chat request: the full client-held history plus optional
// notice scope and assistant display name.
type ChatInput struct {
	History       []domain.ChatTurn
	AssistantName string
	NoticeID      string
}

// ChatOutput carries the generated answer and its source attributions.
type ChatOutput struct {
	Content string
	Sources []string
}

// ChatService orchestrates one chat turn: load settings, assemble retrieval
// context, build the prompt and call the completion provider.
type ChatService struct {
	assembler *ContextAssembler
	llm       ChatCompleter
	settings  SettingsStore
}

func NewChatService(assembler *ContextAssembler, llm ChatCompleter, settings SettingsStore) *ChatService {
	return &ChatService{
		assembler: assembler,
		llm:       llm,
		settings:  settings,
	}
}

// Chat answers the latest user turn. Retrieval problems degrade to an
// ungrounded answer; a completion failure is surfaced to the caller.
func (s *ChatService) Chat(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Chat", telemetry.SpanAttributes{
		NoticeID:  input.NoticeID,
		Operation: "chat",
	})
	defer span.End()

	if len(input.History) == 0 {
		return nil, domain.ErrEmptyChatHistory
	}
	for _, turn := range input.History {
		if err := domain.ValidateChatTurn(turn); err != nil {
			return nil, err
		}
	}

	history := input.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	settings, err := s.settings.GetRAGSettings(ctx)
	if err != nil {
		log.Printf("failed to load rag settings (using defaults): %v", err)
		telemetry.CaptureError(ctx, err)
		settings = domain.DefaultRAGSettings()
	}

	query := latestUserContent(history)
	ragCtx := s.assembler.Assemble(ctx, input.NoticeID, query, settings)

	messages := make([]openai.ChatMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatMessage{
		Role:    "system",
		Content: buildSystemPrompt(input.AssistantName, ragCtx.HasRetrievedContext),
	})
	if ragCtx.HasRetrievedContext {
		messages = append(messages, openai.ChatMessage{
			Role:    "system",
			Content: ragCtx.ContextBlock,
		})
	}
	for _, turn := range history {
		messages = append(messages, openai.ChatMessage{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}

	content, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	return &ChatOutput{
		Content: content,
		Sources: ragCtx.Sources,
	}, nil
}

// latestUserContent is the retrieval query: the most recent user turn.
func latestUserContent(history []domain.ChatTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.ChatRoleUser {
			return history[i].Content
		}
	}
	return ""
}

// buildSystemPrompt selects the grounded or ungrounded assistant persona.
// The grounded variant must answer only from the supplied context and cite
// its sources; the ungrounded one must flag that answers may need validation
// against the official notice.
func buildSystemPrompt(assistantName string, grounded bool) string {
	name := assistantName
	if name == "" {
		name = "um assistente"
	}

	base := fmt.Sprintf(`Voce e %s no Hub Inteligente de Editais.
Responda sempre em portugues do Brasil, com objetividade e linguagem clara.
Contexto principal:
- apoiar usuarios na leitura de editais, prazos, requisitos e documentacao;
- sugerir proximos passos praticos;
- sinalizar quando faltar informacao.`, name)

	if grounded {
		return base + `
Use apenas o contexto fornecido nas mensagens de sistema para responder.
Cite as fontes entre colchetes (ex.: [1]) ou pelo titulo do edital.
Se o contexto nao for suficiente, diga isso explicitamente em vez de inventar dados.`
	}

	return base + `
Nenhum contexto de edital foi recuperado para esta conversa.
Evite inventar dados e avise que as respostas devem ser validadas no edital oficial.`
}
