package board

import (
	"context"
	"errors"

	"promptboard/internal/logger"
)

// ErrNoCredential is returned by Runner.Start when no API credential is
// available; the board is left untouched.
var ErrNoCredential = errors.New("no API credential configured")

// ErrCardNotFound is returned when the card to run is not in To Do.
var ErrCardNotFound = errors.New("card not found in To Do")

// Completer is the external completion service: given a model identifier,
// prompt text, and credential it returns the generated text. The adapter
// owns its own transport policy; the runner performs no retries.
type Completer interface {
	Complete(ctx context.Context, model, prompt, credential string) (string, error)
}

// CredentialSource yields the API credential, read once per run at call
// time.
type CredentialSource interface {
	Credential() (string, bool)
}

// CredentialFunc adapts a plain function to CredentialSource.
type CredentialFunc func() (string, bool)

func (f CredentialFunc) Credential() (string, bool) { return f() }

// Runner drives the three-phase card lifecycle:
//
//	To Do -> In Progress -> Done        (success)
//	To Do -> In Progress -> To Do       (failure)
//
// Start performs the optimistic To Do -> In Progress transition before any
// network I/O; Finish is the sole suspension point and applies the outcome
// by card id, wherever the card lives by then. Overlapping runs therefore
// never interfere: each Pending tracks its own card end to end.
type Runner struct {
	store     *Store
	completer Completer
	creds     CredentialSource
}

func NewRunner(store *Store, completer Completer, creds CredentialSource) *Runner {
	return &Runner{store: store, completer: completer, creds: creds}
}

// Pending is a run that has passed its preconditions and moved its card to
// In Progress. It carries the credential read at start time.
type Pending struct {
	Card       Card
	credential string
}

// Outcome is the terminal state of one run. Err carries the failure message
// for a user-visible notification; Result is set only on success.
type Outcome struct {
	CardID string
	Result string
	Err    error
}

// Start checks preconditions and moves the card from To Do to the end of
// In Progress. On any error no state change has happened.
func (r *Runner) Start(id string) (Pending, error) {
	cred, ok := r.creds.Credential()
	if !ok || cred == "" {
		return Pending{}, ErrNoCredential
	}
	card, stage, found := r.store.FindCard(id)
	if !found || stage != StageTodo {
		return Pending{}, ErrCardNotFound
	}
	if !r.store.MoveCardToStage(id, StageInProgress) {
		// Lost a race with a concurrent removal.
		return Pending{}, ErrCardNotFound
	}
	logger.Run("card %s (%s) started with model %s", card.ID, card.Title, card.Model)
	return Pending{Card: card, credential: cred}, nil
}

// Finish invokes the completion service and applies the outcome. There is
// no cancellation of an in-flight call: once started it runs to success or
// failure, and the result is applied by id even if the card was dragged
// elsewhere in the meantime. A concurrently deleted card is a benign no-op.
func (r *Runner) Finish(ctx context.Context, p Pending) Outcome {
	text, err := r.completer.Complete(ctx, p.Card.Model, p.Card.Prompt, p.credential)
	if err != nil {
		r.store.MoveCardToStage(p.Card.ID, StageTodo)
		logger.Run("card %s failed: %v", p.Card.ID, err)
		return Outcome{CardID: p.Card.ID, Err: err}
	}
	r.store.SetCardResult(p.Card.ID, text)
	r.store.MoveCardToStage(p.Card.ID, StageDone)
	logger.Run("card %s completed (%d bytes)", p.Card.ID, len(text))
	return Outcome{CardID: p.Card.ID, Result: text}
}

// Run executes Start and Finish in sequence. Used by the headless CLI path
// and tests; the TUI splits the phases so the optimistic move renders
// before the network call resolves.
func (r *Runner) Run(ctx context.Context, id string) Outcome {
	p, err := r.Start(id)
	if err != nil {
		return Outcome{CardID: id, Err: err}
	}
	return r.Finish(ctx, p)
}
