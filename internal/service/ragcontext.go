package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hustly-dev/distrito-tecnologico-hub/internal/domain"
	"github.com/hustly-dev/distrito-tecnologico-hub/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const candidateSummaryMaxChars = 420

// NoticeStore is the slice of the relational store the assembler needs.
type NoticeStore interface {
	GetNotice(ctx context.Context, id string) (*domain.Notice, error)
	ListNotices(ctx context.Context) ([]*domain.Notice, error)
}

// RAGContext is the assembled grounding block for one chat request.
// HasRetrievedContext selects the grounded system prompt downstream; when
// false the assistant must not pretend to quote notice material.
type RAGContext struct {
	ContextBlock        string
	Sources             []string
	HasRetrievedContext bool
}

// ContextAssembler builds the retrieval context for a chat request: cited
// chunk excerpts when a notice is selected, ranked notice candidates
// otherwise.
type ContextAssembler struct {
	notices   NoticeStore
	retriever *ChunkRetriever
	now       func() time.Time
}

func NewContextAssembler(notices NoticeStore, retriever *ChunkRetriever) *ContextAssembler {
	return &ContextAssembler{
		notices:   notices,
		retriever: retriever,
		now:       time.Now,
	}
}

// Assemble resolves the context for the request. Store failures are recovered
// locally: the caller observes an empty context, never the cause.
func (a *ContextAssembler) Assemble(ctx context.Context, noticeID, query string, settings domain.RAGSettings) *RAGContext {
	ctx, span := telemetry.StartSpan(ctx, "ContextAssembler.Assemble", telemetry.SpanAttributes{
		NoticeID:  noticeID,
		Operation: "assemble",
	})
	defer span.End()

	if noticeID != "" {
		return a.assembleForNotice(ctx, noticeID, query, settings)
	}
	return a.assembleRecommendations(ctx, query, settings)
}

// assembleForNotice fans out the notice lookup and chunk retrieval (they are
// independent; the retriever awaits its own query embedding internally), then
// formats numbered cited excerpts with the notice metadata as background.
func (a *ContextAssembler) assembleForNotice(ctx context.Context, noticeID, query string, settings domain.RAGSettings) *RAGContext {
	var (
		notice  *domain.Notice
		chunks  []RetrievedChunk
		sources []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := a.notices.GetNotice(gctx, noticeID)
		if err != nil {
			log.Printf("notice lookup failed for %s (continuing without background): %v", noticeID, err)
			telemetry.CaptureError(gctx, err)
			return nil
		}
		notice = n
		return nil
	})
	g.Go(func() error {
		chunks, sources = a.retriever.Retrieve(gctx, noticeID, query, settings)
		return nil
	})
	_ = g.Wait()

	if len(chunks) == 0 {
		return &RAGContext{}
	}

	var b strings.Builder
	if notice != nil {
		b.WriteString("Edital em analise:\n")
		fmt.Fprintf(&b, "Titulo: %s\n", notice.Title)
		if notice.Summary != "" {
			fmt.Fprintf(&b, "Resumo: %s\n", notice.Summary)
		}
		if notice.Description != "" {
			fmt.Fprintf(&b, "Descricao: %s\n", truncateContent(notice.Description, candidateSummaryMaxChars))
		}
		b.WriteString("\n")
	}

	b.WriteString("Trechos dos documentos do edital:\n")
	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[%d] (arquivo: %s) %s\n", i+1, chunk.FileName, chunk.Content)
	}

	return &RAGContext{
		ContextBlock:        b.String(),
		Sources:             sources,
		HasRetrievedContext: true,
	}
}

// assembleRecommendations ranks all notices against the query and formats the
// survivors as candidate blocks. Candidates are cited by title in the
// assistant's own narrative, so there are no numbered citations here.
func (a *ContextAssembler) assembleRecommendations(ctx context.Context, query string, settings domain.RAGSettings) *RAGContext {
	notices, err := a.notices.ListNotices(ctx)
	if err != nil {
		log.Printf("notice listing failed (continuing without context): %v", err)
		telemetry.CaptureError(ctx, err)
		return &RAGContext{}
	}

	candidates := RecommendNotices(notices, query, settings.SearchLevel, a.now())
	if len(candidates) == 0 {
		return &RAGContext{}
	}

	var b strings.Builder
	b.WriteString("Editais candidatos para o perfil do usuario:\n\n")
	sources := make([]string, 0, len(candidates))
	for i, c := range candidates {
		sources = append(sources, c.Notice.Title)
		fmt.Fprintf(&b, "Candidato %d:\n", i+1)
		fmt.Fprintf(&b, "  Id: %s\n", c.Notice.ID)
		fmt.Fprintf(&b, "  Titulo: %s\n", c.Notice.Title)
		fmt.Fprintf(&b, "  Agencia: %s\n", c.Notice.AgencyName)
		fmt.Fprintf(&b, "  Status: %s\n", noticeStatusLabel(c.Notice.Status))
		if !c.Notice.DeadlineDate.IsZero() {
			fmt.Fprintf(&b, "  Prazo: %s\n", c.Notice.DeadlineDate.Format("02/01/2006"))
		}
		fmt.Fprintf(&b, "  Faixa de valor: %s\n", FormatBudgetRange(c.Notice.BudgetMin, c.Notice.BudgetMax))
		if len(c.Notice.Tags) > 0 {
			fmt.Fprintf(&b, "  Temas: %s\n", strings.Join(c.Notice.Tags, ", "))
		}
		summary := c.Notice.Summary
		if summary == "" {
			summary = c.Notice.Description
		}
		if summary != "" {
			fmt.Fprintf(&b, "  Resumo: %s\n", truncateContent(summary, candidateSummaryMaxChars))
		}
		if len(c.Reasons) > 0 {
			fmt.Fprintf(&b, "  Motivos: %s\n", strings.Join(c.Reasons, "; "))
		}
		// Raw score is for debuggability and citation, not something the
		// model should reason about numerically.
		fmt.Fprintf(&b, "  Pontuacao interna: %.2f\n\n", c.Score)
	}

	return &RAGContext{
		ContextBlock:        b.String(),
		Sources:             sources,
		HasRetrievedContext: true,
	}
}

func noticeStatusLabel(s domain.NoticeStatus) string {
	switch s {
	case domain.NoticeStatusOpen:
		return "aberto"
	case domain.NoticeStatusClosed:
		return "encerrado"
	case domain.NoticeStatusUpcoming:
		return "em breve"
	}
	return string(s)
}
