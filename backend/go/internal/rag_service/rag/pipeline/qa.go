package pipeline

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/query"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/pkg/logger"
)

// DefaultChatSystemPrompt is used by free-form chat when the caller sends none.
const DefaultChatSystemPrompt = "You are a helpful assistant."

// Answer is the outcome of one question.
type Answer struct {
	Text       string
	OutOfScope bool
	Decision   query.Decision
}

// QAPipeline is responsible for generating an answer based on a query and retrieved chunks.
type QAPipeline struct {
	llm  interfaces.LLM
	gate *query.Gate
	log  *logger.Logger
}

// NewQAPipeline creates a new QAPipeline. llm may be nil when no generator is configured.
func NewQAPipeline(llm interfaces.LLM, gate *query.Gate, log *logger.Logger) *QAPipeline {
	return &QAPipeline{
		llm:  llm,
		gate: gate,
		log:  log,
	}
}

// Run gates the retrieval, builds the prompt, calls the LLM and screens its answer.
// A failed gate or a refusal comes back as a successful out-of-scope Answer.
func (p *QAPipeline) Run(ctx context.Context, question string, c query.Classification, r *schema.RetrievalResult) (*Answer, error) {
	// 1. Relevance gate
	d := p.gate.Check(question, c, r.Context)
	if !d.Pass {
		p.log.Info(fmt.Sprintf("Relevance gate rejected the question (%s, ratio %.2f)", d.Reason, d.Ratio))
		return &Answer{Text: query.OutOfScopeMessage, OutOfScope: true, Decision: d}, nil
	}

	if p.llm == nil {
		return nil, ragerr.New(ragerr.CapabilityUnavailable, "answer generation is not configured on this server").
			With("capability", "generation")
	}

	// 2. Build the prompt
	p.log.Info(fmt.Sprintf("Building prompt with %d chunks", len(r.Chunks)))
	system := p.buildPrompt(r.Chunks)

	// 3. Call the LLM to generate the answer
	answer, err := p.llm.Generate(ctx, system, question)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.log.WithErr(err).Error("LLM failed to generate answer")
		return nil, ragerr.Wrap(ragerr.GenerationFailure, err, "the answer service failed to respond; try again later")
	}

	// 4. The generator sometimes ignores the instructions
	if query.IsRefusal(answer) {
		p.log.Info("LLM answer was a refusal, downgrading to out of scope")
		return &Answer{Text: query.OutOfScopeMessage, OutOfScope: true, Decision: d}, nil
	}

	p.log.Info("Successfully generated answer from LLM.")
	return &Answer{Text: answer, Decision: d}, nil
}

// Chat forwards a free-form exchange to the LLM without retrieval.
func (p *QAPipeline) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if strings.TrimSpace(userMessage) == "" {
		return "", ragerr.New(ragerr.InvalidArgument, "the message must not be empty")
	}
	if p.llm == nil {
		return "", ragerr.New(ragerr.CapabilityUnavailable, "answer generation is not configured on this server").
			With("capability", "generation")
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = DefaultChatSystemPrompt
	}

	answer, err := p.llm.Generate(ctx, systemPrompt, userMessage)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.log.WithErr(err).Error("LLM failed to answer chat message")
		return "", ragerr.Wrap(ragerr.GenerationFailure, err, "the answer service failed to respond; try again later")
	}
	return answer, nil
}

// buildPrompt constructs the system prompt from the retrieved chunks.
func (p *QAPipeline) buildPrompt(chunks []schema.ScoredChunk) string {
	var sb strings.Builder

	sb.WriteString("You answer questions about a single uploaded document. ")
	sb.WriteString("Use only the numbered context blocks below. Do not use outside knowledge. ")
	sb.WriteString(fmt.Sprintf("If the context does not contain the answer, reply exactly: %q\n\nContext:\n", query.RefusalSentence))

	for i, c := range chunks {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("Context %d:\n%s\n", i+1, c.Text))
	}

	sb.WriteString("---\n")
	return sb.String()
}
