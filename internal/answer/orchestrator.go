package answer

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/charmbracelet/log"

	"ragdoc/internal/domain"
)

// NoRelevantInfo is returned when retrieval finds nothing to answer from.
const NoRelevantInfo = "No relevant information found in the document to answer your query. Please try a different question."

// EmptyResponse is returned when the model finished without any text.
const EmptyResponse = "LLM response received, but no content was extracted."

const promptTemplate = `You are an AI assistant tasked with answering questions based on the provided context.

Context:
---
%s
---

Question: %s

Answer:
`

// Retriever is the subset of the retrieval engine the orchestrator needs.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, destination string) ([]domain.SimilarityMatch, error)
}

// Result carries the answer with what produced it.
type Result struct {
	Answer  string
	Matches []domain.SimilarityMatch
	Prompt  string
	// Err is the generation failure that Answer describes, if any.
	Err error
}

// Orchestrator turns retrieved chunks into a prompt and asks the model.
// Generation failures become the answer text instead of an error.
type Orchestrator struct {
	retriever Retriever
	generator domain.Generator
	logger    *log.Logger
}

func NewOrchestrator(retriever Retriever, generator domain.Generator, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{retriever: retriever, generator: generator, logger: logger.WithPrefix("answer")}
}

// Answer returns a displayable answer. Only retrieval errors are returned.
func (o *Orchestrator) Answer(ctx context.Context, query string, topK int, destination string) (string, error) {
	res, err := o.Ask(ctx, query, topK, destination)
	if err != nil {
		return "", err
	}
	return res.Answer, nil
}

// Ask is Answer with the retrieved matches and prompt attached.
func (o *Orchestrator) Ask(ctx context.Context, query string, topK int, destination string) (*Result, error) {
	matches, err := o.retriever.Retrieve(ctx, query, topK, destination)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return &Result{Answer: NoRelevantInfo}, nil
	}

	prompt := BuildPrompt(query, matches)
	o.logger.Debug("generating", "matches", len(matches), "prompt_chars", len(prompt))
	text, err := o.generator.Generate(ctx, prompt)
	res := &Result{Matches: matches, Prompt: prompt}
	switch {
	case err != nil:
		o.logger.Error("generation failed", "err", err)
		res.Answer = describe(err)
		res.Err = err
	case strings.TrimSpace(text) == "":
		res.Answer = EmptyResponse
	default:
		res.Answer = text
	}
	return res, nil
}

// Stream yields the answer incrementally. A sequence that produces nothing
// else yields the sentinel or the failure description as its only piece.
func (o *Orchestrator) Stream(ctx context.Context, query string, topK int, destination string) (iter.Seq[string], error) {
	matches, err := o.retriever.Retrieve(ctx, query, topK, destination)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return func(yield func(string) bool) { yield(NoRelevantInfo) }, nil
	}
	prompt := BuildPrompt(query, matches)
	return func(yield func(string) bool) {
		produced := false
		for piece, err := range o.generator.Stream(ctx, prompt) {
			if err != nil {
				o.logger.Error("generation failed", "err", err)
				if produced {
					piece = "\n\n" + describe(err)
				} else {
					piece = describe(err)
				}
				yield(piece)
				return
			}
			produced = true
			if !yield(piece) {
				return
			}
		}
		if !produced {
			yield(EmptyResponse)
		}
	}, nil
}

// BuildPrompt joins match texts best first and fills the prompt template.
func BuildPrompt(query string, matches []domain.SimilarityMatch) string {
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return fmt.Sprintf(promptTemplate, strings.Join(texts, "\n\n"), query)
}

func describe(err error) string {
	return fmt.Sprintf("Error calling the language model: %v. Make sure the model server is running and accessible.", err)
}
