package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/biorag/internal/domain"
	"github.com/cloo-solutions/biorag/internal/prompts"
	"github.com/cloo-solutions/biorag/internal/telemetry"
)

const (
	// DefaultQAK is the number of chunks retrieved when a request sets none.
	DefaultQAK = 6
	// qaContextChars bounds each retrieved chunk in the generation context.
	qaContextChars = 1200
)

// QAStateName names a step of the question answering pipeline.
type QAStateName string

const (
	StateRetrieve QAStateName = "RETRIEVE"
	StateGenerate QAStateName = "GENERATE"
	StateDone     QAStateName = "DONE"
)

// qaTransitions is the only path through the pipeline.
var qaTransitions = map[QAStateName]QAStateName{
	StateRetrieve: StateGenerate,
	StateGenerate: StateDone,
}

// QARequest asks a question about one publication.
type QARequest struct {
	DocumentID string
	Question   string
	K          int
}

// QAResult is the grounded answer.
type QAResult struct {
	Answer string `json:"answer"`
}

// qaState lives for one request.
type qaState struct {
	DocumentID string
	Scope      domain.Scope
	Question   string
	K          int
	Hits       []domain.Hit
	Answer     string
	State      QAStateName
}

// QAService answers questions about a single publication from its own index.
type QAService struct {
	index     VectorIndex
	generator Generator
	prompts   *prompts.Set
	logger    *zap.Logger
}

// NewQAService creates a new QAService. A nil prompt set uses the defaults.
func NewQAService(index VectorIndex, generator Generator, set *prompts.Set, logger *zap.Logger) *QAService {
	if set == nil {
		set = prompts.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAService{
		index:     index,
		generator: generator,
		prompts:   set,
		logger:    logger,
	}
}

// Ask runs RETRIEVE then GENERATE. A publication without an index fails with
// INDEX_MISSING and the generator is never called.
func (s *QAService) Ask(ctx context.Context, req QARequest) (*QAResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QAService.Ask", telemetry.SpanAttributes{
		DocumentID: req.DocumentID,
		Scope:      req.DocumentID,
		Operation:  "ask",
	})
	defer span.End()

	if strings.TrimSpace(req.DocumentID) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "document id is required")
	}
	if strings.TrimSpace(req.Question) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "question is required")
	}
	scope, err := domain.DocumentScope(req.DocumentID)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document id", err)
	}
	k := req.K
	if k <= 0 {
		k = DefaultQAK
	}

	st := &qaState{
		DocumentID: req.DocumentID,
		Scope:      scope,
		Question:   req.Question,
		K:          k,
		State:      StateRetrieve,
	}
	if err := s.run(ctx, st); err != nil {
		span.SetError(err)
		return nil, err
	}
	return &QAResult{Answer: st.Answer}, nil
}

func (s *QAService) run(ctx context.Context, st *qaState) error {
	for st.State != StateDone {
		var err error
		switch st.State {
		case StateRetrieve:
			err = s.retrieve(ctx, st)
		case StateGenerate:
			err = s.generate(ctx, st)
		default:
			return fmt.Errorf("qa: unknown state %q", st.State)
		}
		if err != nil {
			return err
		}

		next, ok := qaTransitions[st.State]
		if !ok {
			return fmt.Errorf("qa: no transition from %q", st.State)
		}
		s.logger.Debug("qa transition",
			zap.String("publication_id", st.DocumentID),
			zap.String("from", string(st.State)),
			zap.String("to", string(next)),
		)
		st.State = next
	}
	return nil
}

func (s *QAService) retrieve(ctx context.Context, st *qaState) error {
	hits, err := s.index.SimilaritySearch(ctx, st.Scope, st.Question, st.K)
	if err != nil {
		return err
	}
	st.Hits = hits
	return nil
}

func (s *QAService) generate(ctx context.Context, st *qaState) error {
	prompt := prompts.Render(s.prompts.QAUser, map[string]string{
		"question": st.Question,
		"context":  buildQAContext(st.Hits),
	})
	answer, err := s.generator.Generate(ctx, s.prompts.QASystem, prompt)
	if err != nil {
		if domain.CodeOf(err) == "" && ctx.Err() == nil {
			return domain.ProviderError("generate answer", err)
		}
		return err
	}
	st.Answer = answer
	return nil
}

// buildQAContext renders hits as numbered blocks separated by blank lines.
func buildQAContext(hits []domain.Hit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		blocks[i] = fmt.Sprintf("[%d] %s", i+1, truncateRunes(h.Payload.Text, qaContextChars))
	}
	return strings.Join(blocks, "\n\n")
}
