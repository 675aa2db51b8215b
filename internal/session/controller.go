// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/studymate/internal/attachment"
	"github.com/jeranaias/studymate/internal/conversation"
	"github.com/jeranaias/studymate/internal/errs"
	"github.com/jeranaias/studymate/internal/model"
	"github.com/jeranaias/studymate/internal/prompts"
	"github.com/jeranaias/studymate/internal/transport"
)

// Errors returned by the controller.
var (
	// ErrBusy is returned when Submit is called while a turn is active.
	// No message is created.
	ErrBusy = errors.New("a response is already in progress")

	// ErrStale is returned by Submit when the conversation was reset while
	// the turn was in progress. Its result was discarded.
	ErrStale = errors.New("turn discarded: conversation was reset")

	// ErrNoDocumentService is returned by Attach when no grounded client is
	// configured.
	ErrNoDocumentService = errors.New("document service is not configured")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ChatClient streams general-knowledge completions.
type ChatClient interface {
	StreamCompletion(ctx context.Context, messages []model.HistoryTurn, onChunk transport.ChunkFunc) (string, error)
}

// GroundedClient answers from an uploaded document and manages uploads.
type GroundedClient interface {
	StreamGroundedCompletion(ctx context.Context, question, resourceID string,
		history []model.HistoryTurn, onChunk transport.ChunkFunc) (transport.Answer, error)
	Upload(ctx context.Context, doc *transport.Document) (transport.UploadResult, error)
	DeleteResource(ctx context.Context, id string) error
}

// configChecker is implemented by clients that validate their settings at
// construction.
type configChecker interface {
	ConfigError() error
}

// Config holds the collaborators and settings of a Controller.
type Config struct {
	Chat     ChatClient
	Grounded GroundedClient
	Logger   *zap.Logger

	// SystemPrompt is prepended on the general path. Defaults to
	// prompts.SystemPrompt.
	SystemPrompt string

	// Greeting seeds every conversation. Defaults to prompts.Greeting.
	Greeting string

	// HistoryLimit caps the prior turns sent to a transport. Zero sends all.
	HistoryLimit int
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the session state machine. It is the single writer of the
// conversation store.
type Controller struct {
	// mu guards turn, epoch, cancelTurn, banner and observers. Store writes
	// that must agree with the turn state happen under it too.
	mu sync.Mutex

	// notifyMu serializes observer delivery so views arrive in order.
	notifyMu sync.Mutex

	store  *conversation.Store
	attach *attachment.Manager

	chat     ChatClient
	grounded GroundedClient
	logger   *zap.Logger

	systemPrompt string
	greeting     string
	historyLimit int

	turn       TurnState
	epoch      uint64
	cancelTurn context.CancelFunc
	banner     *Banner

	observers map[int]Observer
	nextObs   int
}

// New creates a controller with a fresh conversation and no attachment.
// If a client reports a configuration problem, the banner is set at once.
func New(cfg Config) *Controller {
	c := &Controller{
		attach:       attachment.NewManager(),
		chat:         cfg.Chat,
		grounded:     cfg.Grounded,
		logger:       cfg.Logger,
		systemPrompt: cfg.SystemPrompt,
		greeting:     cfg.Greeting,
		historyLimit: cfg.HistoryLimit,
		observers:    make(map[int]Observer),
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.systemPrompt == "" {
		c.systemPrompt = prompts.SystemPrompt
	}
	if c.greeting == "" {
		c.greeting = prompts.Greeting
	}
	c.store = conversation.New(model.NewAssistantMessage(c.greeting))

	for _, client := range []any{cfg.Chat, cfg.Grounded} {
		if cc, ok := client.(configChecker); ok {
			if cfgErr, ok := errs.AsConfiguration(cc.ConfigError()); ok && c.banner == nil {
				c.banner = bannerFrom(cfgErr)
			}
		}
	}

	// Attachment transitions drive conversation resets and repaints.
	c.attach.Subscribe(c.onAttachmentEvent)
	return c
}

// =============================================================================
// OBSERVERS
// =============================================================================

// Subscribe registers o and returns a function that removes it.
func (c *Controller) Subscribe(o Observer) func() {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = o
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// View returns the current snapshot.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewLocked()
}

func (c *Controller) viewLocked() View {
	v := View{
		Messages:   c.store.Snapshot(),
		Turn:       c.turn,
		Attachment: c.attach.Snapshot(),
	}
	if c.banner != nil {
		b := *c.banner
		v.Banner = &b
	}
	v.ShowQuickActions = c.turn == TurnIdle && c.store.OnlySeed()
	return v
}

func (c *Controller) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	v := c.viewLocked()
	observers := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	for _, o := range observers {
		o.SessionChanged(v)
	}
}

// =============================================================================
// BANNER
// =============================================================================

// DismissBanner hides the configuration banner.
func (c *Controller) DismissBanner() {
	c.mu.Lock()
	had := c.banner != nil
	c.banner = nil
	c.mu.Unlock()
	if had {
		c.notify()
	}
}

func (c *Controller) raiseBanner(cfgErr *errs.ConfigurationError) {
	c.mu.Lock()
	c.banner = bannerFrom(cfgErr)
	c.mu.Unlock()
	c.logger.Warn("configuration problem",
		zap.String("setting", cfgErr.Setting), zap.String("message", cfgErr.Message))
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit runs one turn for text and blocks until it settles.
//
// Blank text, or a question over transport.MaxQuestionLength while a
// document is attached, returns a ValidationError and changes nothing. If a
// turn is already active, Submit returns ErrBusy and creates no message.
// Transport failures are also recorded in the conversation as an errored
// assistant message; a configuration failure raises the banner instead.
func (c *Controller) Submit(ctx context.Context, text string) error {
	text = normalize(text)
	if strings.TrimSpace(text) == "" {
		return errs.Validation("message", "must not be blank")
	}

	c.mu.Lock()
	if c.turn != TurnIdle {
		c.mu.Unlock()
		return ErrBusy
	}

	// The attachment is read once; a concurrent upload is seen either
	// before it started or fully attached.
	att := c.attach.Snapshot()
	if att.IsAttached() && c.grounded != nil {
		if err := transport.CheckQuestionLength(text); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	history := c.limitHistory(c.store.History())

	user := model.NewUserMessage(text)
	placeholder := model.NewPlaceholder()
	if err := c.store.Append(user); err != nil {
		c.mu.Unlock()
		c.logProtocol(err)
		return err
	}
	if err := c.store.Append(placeholder); err != nil {
		c.mu.Unlock()
		c.logProtocol(err)
		return err
	}

	turnCtx, cancel := context.WithCancel(ctx)
	c.epoch++
	epoch := c.epoch
	c.cancelTurn = cancel
	c.turn = TurnAwaitingResponse
	c.mu.Unlock()
	defer cancel()

	c.notify()

	onChunk := func(delta, accumulated string) {
		c.applyChunk(placeholder.ID, delta, accumulated)
	}

	var (
		answer transport.Answer
		err    error
	)
	if att.IsAttached() && c.grounded != nil {
		c.logger.Info("turn started", zap.String("route", "grounded"),
			zap.String("resource_id", att.ResourceID), zap.Int("history", len(history)))
		answer, err = c.grounded.StreamGroundedCompletion(turnCtx, text, att.ResourceID, history, onChunk)
	} else {
		c.logger.Info("turn started", zap.String("route", "general"), zap.Int("history", len(history)))
		messages := make([]model.HistoryTurn, 0, len(history)+2)
		messages = append(messages, model.HistoryTurn{Role: "system", Content: c.systemPrompt})
		messages = append(messages, history...)
		messages = append(messages, user.Turn())
		answer.Text, err = c.streamGeneral(turnCtx, messages, onChunk)
	}

	return c.settle(epoch, placeholder.ID, answer, err)
}

func (c *Controller) streamGeneral(ctx context.Context, messages []model.HistoryTurn, onChunk transport.ChunkFunc) (string, error) {
	if c.chat == nil {
		return "", errs.Configuration("mistral.api_key", "no chat client configured",
			"Set STUDYMATE_MISTRAL_API_KEY and restart.")
	}
	return c.chat.StreamCompletion(ctx, messages, onChunk)
}

// applyChunk writes one streamed chunk into the in-flight message. A chunk
// from a stale turn fails the store's id check and is dropped.
func (c *Controller) applyChunk(id, delta, accumulated string) {
	c.mu.Lock()
	if err := c.store.MutateInFlight(id, delta, accumulated); err != nil {
		c.mu.Unlock()
		c.logProtocol(err)
		return
	}
	if c.turn == TurnAwaitingResponse {
		c.turn = TurnStreaming
	}
	c.mu.Unlock()
	c.notify()
}

// settle finishes the turn identified by epoch.
func (c *Controller) settle(epoch uint64, id string, answer transport.Answer, err error) error {
	c.mu.Lock()
	if epoch != c.epoch || !c.turn.Active() {
		c.mu.Unlock()
		c.logger.Debug("dropping result of stale turn", zap.String("message_id", id), zap.Error(err))
		return ErrStale
	}
	c.cancelTurn = nil

	if err == nil {
		c.completeLocked(id, answer)
		c.turn = TurnSettled
		c.mu.Unlock()
		c.logger.Info("turn settled",
			zap.Int("chars", len(answer.Text)), zap.Int("citations", len(answer.Citations)))
		c.finishTurn()
		return nil
	}

	if rmErr := c.store.Remove(id); rmErr != nil {
		c.logProtocol(rmErr)
	}
	if cfgErr, ok := errs.AsConfiguration(err); ok {
		c.banner = bannerFrom(cfgErr)
		c.logger.Warn("turn blocked by configuration",
			zap.String("setting", cfgErr.Setting), zap.String("message", cfgErr.Message))
	} else {
		reply := prompts.ErrorReply(err.Error())
		if transport.IsCanceled(err) {
			reply = prompts.StoppedReply
			c.logger.Info("turn stopped by user")
		} else {
			c.logger.Warn("turn failed", zap.Error(err))
		}
		if appendErr := c.store.Append(model.NewErroredMessage(reply)); appendErr != nil {
			c.logProtocol(appendErr)
		}
	}
	c.turn = TurnFailed
	c.mu.Unlock()
	c.finishTurn()
	return err
}

// completeLocked finalizes the in-flight message. If the client returned
// more text than it streamed, the remainder is applied first so the stored
// text equals the final answer.
func (c *Controller) completeLocked(id string, answer transport.Answer) {
	for _, m := range c.store.Snapshot() {
		if m.ID != id {
			continue
		}
		if answer.Text != m.Text && strings.HasPrefix(answer.Text, m.Text) {
			if err := c.store.MutateInFlight(id, answer.Text[len(m.Text):], answer.Text); err != nil {
				c.logProtocol(err)
			}
		}
		break
	}
	if err := c.store.Finalize(id, answer.Citations); err != nil {
		c.logProtocol(err)
	}
}

// finishTurn publishes the terminal state and returns to idle.
func (c *Controller) finishTurn() {
	c.notify()
	c.mu.Lock()
	if c.turn == TurnSettled || c.turn == TurnFailed {
		c.turn = TurnIdle
	}
	c.mu.Unlock()
	c.notify()
}

// Cancel aborts the active turn, if any. The turn then fails like any other
// transport error.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelTurn == nil || !c.turn.Active() {
		return false
	}
	c.cancelTurn()
	return true
}

// =============================================================================
// DOCUMENT ATTACHMENT
// =============================================================================

// Attachment returns the current attachment snapshot.
func (c *Controller) Attachment() attachment.Attachment {
	return c.attach.Snapshot()
}

// Attach validates and uploads doc. On success the conversation is reset to
// the greeting. On failure the attachment enters the error state and the
// conversation is left untouched.
func (c *Controller) Attach(ctx context.Context, doc *transport.Document) error {
	if c.grounded == nil {
		return ErrNoDocumentService
	}
	if err := c.attach.BeginUpload(doc); err != nil {
		return err
	}

	res, err := c.grounded.Upload(ctx, doc)
	if err != nil {
		c.logger.Warn("upload failed", zap.String("file", doc.Name), zap.Error(err))
		if cfgErr, ok := errs.AsConfiguration(err); ok {
			c.raiseBanner(cfgErr)
		}
		if failErr := c.attach.FailUpload(uploadDetail(err)); failErr != nil {
			c.logger.Error("attachment state", zap.Error(failErr))
		}
		return err
	}

	if err := c.attach.CompleteUpload(res); err != nil {
		c.logger.Error("attachment state", zap.Error(err))
		_ = c.attach.FailUpload(err.Error())
		return err
	}
	return nil
}

// Detach removes the attached (or failed) document and resets the
// conversation. Deleting the resource on the backend is best effort.
func (c *Controller) Detach(ctx context.Context) error {
	prev := c.attach.Snapshot()
	if err := c.attach.Remove(); err != nil {
		return err
	}

	if prev.State == attachment.StateAttached && c.grounded != nil {
		if err := c.grounded.DeleteResource(ctx, prev.ResourceID); err != nil {
			c.logger.Error("failed to delete resource",
				zap.String("resource_id", prev.ResourceID), zap.Error(err))
		}
	}
	return nil
}

// onAttachmentEvent resets the conversation when the document changes and
// repaints on every transition.
func (c *Controller) onAttachmentEvent(ev attachment.Event) {
	c.logger.Info("attachment changed",
		zap.Stringer("event", ev.Kind), zap.Stringer("state", ev.Current.State))

	if ev.Kind == attachment.EventAttached || ev.Kind == attachment.EventRemoved {
		c.resetConversation()
	}
	c.notify()
}

// resetConversation replaces the log with a fresh greeting. An active turn
// is cancelled and becomes stale.
func (c *Controller) resetConversation() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.turn.Active() {
		c.logger.Info("cancelling stale turn", zap.Stringer("turn", c.turn))
		if c.cancelTurn != nil {
			c.cancelTurn()
			c.cancelTurn = nil
		}
		c.epoch++
		c.turn = TurnIdle
	}
	c.store.Reset(model.NewAssistantMessage(c.greeting))
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Controller) limitHistory(history []model.HistoryTurn) []model.HistoryTurn {
	if c.historyLimit > 0 && len(history) > c.historyLimit {
		return history[len(history)-c.historyLimit:]
	}
	return history
}

// logProtocol records a dropped stray mutation. Protocol errors are defects,
// never user-facing.
func (c *Controller) logProtocol(err error) {
	var pe *errs.ProtocolError
	if errors.As(err, &pe) {
		c.logger.Debug("dropped stray mutation",
			zap.String("op", pe.Op), zap.String("message_id", pe.MessageID), zap.String("reason", pe.Reason))
		return
	}
	c.logger.Error("conversation store", zap.Error(err))
}

// normalize applies NFC and trims trailing whitespace.
func normalize(text string) string {
	return strings.TrimRightFunc(norm.NFC.String(text), unicode.IsSpace)
}

// uploadDetail is the short text shown on a failed upload.
func uploadDetail(err error) string {
	var te *errs.TransportError
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	if cfgErr, ok := errs.AsConfiguration(err); ok {
		return cfgErr.Message
	}
	return err.Error()
}
