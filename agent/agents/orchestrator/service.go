package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	nodex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/nodes"
	statex "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// TurnOptions are per-turn completion overrides. Zero values keep the
// configured defaults.
type TurnOptions struct {
	Model       string
	MaxTokens   int
	Temperature *float32
}

type TurnResult struct {
	SessionID      string
	Reply          string
	Destination    contractx.Destination
	Fallback       bool
	FallbackReason string
	Failed         bool
	CorrelationID  string
	Phases         []nodex.Phase
}

type Orchestrator struct {
	store    statex.Store
	router   nodex.Classifier
	handlers contractx.Handler
	locks    *sessionLocks

	graphRunner compose.Runnable[*nodex.GraphState, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

func New(
	store statex.Store,
	router nodex.Classifier,
	handlers contractx.Handler,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if handlers == nil {
		return nil, errors.New("handler registry is required")
	}

	o := &Orchestrator{
		store:    store,
		router:   router,
		handlers: handlers,
		locks:    newSessionLocks(),
		now:      time.Now,
		newID:    uuid.NewString,
	}

	graphRunner, err := o.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// SubmitTurn processes one utterance and returns the reply text.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID string, text string, opts TurnOptions) (string, error) {
	res, err := o.Submit(ctx, sessionID, text, opts)
	if err != nil {
		return "", err
	}
	return res.Reply, nil
}

// Submit runs the turn state machine while holding the session's lock.
// Turns of different sessions run in parallel.
func (o *Orchestrator) Submit(ctx context.Context, sessionID string, text string, opts TurnOptions) (TurnResult, error) {
	correlationID := o.newID()
	st, err := nodex.ValidateRequest(nodex.GraphInput{
		SessionID:     sessionID,
		Text:          text,
		CorrelationID: correlationID,
		Params: contractx.CompletionParams{
			Model:       opts.Model,
			MaxTokens:   opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	}, o.now)
	if err != nil {
		return TurnResult{}, err
	}

	logger := zerolog.Ctx(ctx).With().
		Str("session_id", st.SessionID).
		Str("correlation_id", correlationID).
		Logger()
	ctx = logger.WithContext(ctx)

	release, err := o.locks.acquire(ctx, st.SessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: waiting for session: %w", contractx.ErrCancelled, err)
	}
	defer release()

	out, err := o.graphRunner.Invoke(ctx, st)
	if err != nil {
		if ctx.Err() != nil && !errors.Is(err, contractx.ErrCancelled) {
			err = fmt.Errorf("%w: %w", contractx.ErrCancelled, err)
		}
		logger.Error().Err(err).Msg("turn aborted")
		return TurnResult{}, err
	}

	logger.Info().
		Str("destination", string(out.Decision.Destination)).
		Bool("fallback", out.Decision.Forced).
		Bool("failed", out.Failed).
		Msg("turn recorded")

	return TurnResult{
		SessionID:      st.SessionID,
		Reply:          out.Reply,
		Destination:    out.Decision.Destination,
		Fallback:       out.Decision.Forced,
		FallbackReason: out.Decision.Reason,
		Failed:         out.Failed,
		CorrelationID:  out.CorrelationID,
		Phases:         out.Phases,
	}, nil
}

// History returns a copy of the recorded turns of a session.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]contractx.Turn, error) {
	turns, err := o.store.ReadAll(ctx, sessionID)
	if err != nil {
		if errors.Is(err, statex.ErrInvalidSession) {
			return nil, ErrInvalidSession
		}
		return nil, fmt.Errorf("%w: %w", contractx.ErrPersistence, err)
	}
	return turns, nil
}
