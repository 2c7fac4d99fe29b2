package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"kaimenu/internal/catalog"
	"kaimenu/internal/llm"
	"kaimenu/internal/menu"
)

var (
	ErrEmptyCatalog            = errors.New("no ingredients available for the requested dietary")
	ErrCollaboratorUnavailable = llm.ErrCollaboratorUnavailable
	ErrMalformedResponse       = llm.ErrMalformedResponse
	ErrNothingToRefine         = errors.New("cycle has no rejected menus to refine")
)

// descriptions longer than this are logged, not rejected
const maxDescriptionWords = 16

// Archiver keeps a transcript of each finished cycle.
type Archiver interface {
	Archive(ctx context.Context, cycleID uuid.UUID, doc []byte) (string, error)
}

type Service struct {
	catalog *catalog.Service
	client  llm.Client
	archive Archiver
	logger  *zap.Logger
}

type Option func(*Service)

// WithArchive stores every finished cycle; failures to archive are logged only.
func WithArchive(a Archiver) Option {
	return func(s *Service) { s.archive = a }
}

func NewService(cat *catalog.Service, client llm.Client, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{catalog: cat, client: client, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes one cycle: render, call the collaborator, parse, validate.
// The returned cycle is always non-nil and records how far it got.
// There is no retry and no timeout beyond ctx.
func (s *Service) Run(ctx context.Context, cons menu.Constraints) (*Cycle, error) {
	return s.run(ctx, cons, nil, nil)
}

// Refine runs one more cycle with the previous rejections fed back.
// It is never called automatically.
func (s *Service) Refine(ctx context.Context, prev *Cycle) (*Cycle, error) {
	if prev == nil || prev.State != StateValidated {
		return nil, fmt.Errorf("refine: cycle is not validated")
	}
	rejected := prev.Rejections()
	if len(rejected) == 0 {
		return nil, ErrNothingToRefine
	}

	parent := prev.ID
	return s.run(ctx, prev.Request.Constraints, &parent, func(req llm.GenerationRequest) llm.GenerationRequest {
		return llm.WithFeedback(req, rejected)
	})
}

func (s *Service) run(
	ctx context.Context,
	cons menu.Constraints,
	parent *uuid.UUID,
	decorate func(llm.GenerationRequest) llm.GenerationRequest,
) (*Cycle, error) {

	cycle := newCycle()
	cycle.ParentID = parent
	log := s.logger.With(zap.String("cycle_id", cycle.ID.String()))

	if err := cons.Validate(); err != nil {
		return cycle, cycle.fail(err)
	}

	// -------------------------------
	// Render
	// -------------------------------
	ingredients := s.catalog.IngredientsFor(ctx, cons.Dietary)
	req := llm.Render(cons, catalog.PromptBlock(ingredients))
	if decorate != nil {
		req = decorate(req)
	}
	cycle.Request = req
	cycle.advance(StateRendered)

	if len(ingredients) == 0 {
		log.Warn("[GENERATION] empty catalog", zap.String("dietary", cons.Dietary))
		return cycle, cycle.fail(fmt.Errorf("%w: %s", ErrEmptyCatalog, cons.Dietary))
	}

	// -------------------------------
	// Call collaborator (no lock held)
	// -------------------------------
	cycle.advance(StateAwaitingResponse)
	log.Info("[GENERATION] requesting menus",
		zap.Int("batch_size", cons.BatchSize),
		zap.String("dietary", cons.Dietary),
		zap.Int("ingredients", len(ingredients)),
	)

	raw, err := s.client.Generate(ctx, req.Prompt)
	if err != nil {
		if !errors.Is(err, ErrMalformedResponse) && !errors.Is(err, ErrCollaboratorUnavailable) {
			err = fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
		}
		log.Error("[GENERATION] collaborator failed", zap.Error(err))
		return cycle, cycle.fail(err)
	}
	cycle.RawResponse = raw

	candidates, err := llm.ParseResponse(raw)
	if err != nil {
		log.Error("[GENERATION] unparsable response", zap.Error(err))
		return cycle, cycle.fail(err)
	}
	cycle.advance(StateReceivedCandidates)

	if len(candidates) != cons.BatchSize {
		log.Warn("[GENERATION] batch size mismatch",
			zap.Int("requested", cons.BatchSize),
			zap.Int("received", len(candidates)),
		)
	}

	// -------------------------------
	// Validate against one snapshot
	// -------------------------------
	validator := menu.NewValidator(s.catalog.Snapshot(ctx))
	verdicts, err := validator.ValidateBatch(ctx, candidates, cons)
	if err != nil {
		return cycle, cycle.fail(err)
	}

	for i, c := range candidates {
		outcome := Outcome{Menu: c, Verdict: verdicts[i]}
		if verdicts[i].Valid {
			cycle.Accepted = append(cycle.Accepted, outcome)
		} else {
			cycle.Rejected = append(cycle.Rejected, outcome)
		}
		if n := len(strings.Fields(c.Description)); n > maxDescriptionWords {
			log.Debug("[GENERATION] description too long",
				zap.String("meal_name", c.Name),
				zap.Int("words", n),
			)
		}
	}
	cycle.advance(StateValidated)

	log.Info("[GENERATION] cycle validated",
		zap.Int("accepted", len(cycle.Accepted)),
		zap.Int("rejected", len(cycle.Rejected)),
	)

	s.archiveCycle(ctx, cycle, log)
	return cycle, nil
}

func (s *Service) archiveCycle(ctx context.Context, cycle *Cycle, log *zap.Logger) {
	if s.archive == nil {
		return
	}

	doc, err := json.Marshal(cycle)
	if err != nil {
		log.Warn("[GENERATION] cannot encode transcript", zap.Error(err))
		return
	}

	key, err := s.archive.Archive(ctx, cycle.ID, doc)
	if err != nil {
		log.Warn("[GENERATION] archive failed", zap.Error(err))
		return
	}
	cycle.ArchiveKey = key
}
