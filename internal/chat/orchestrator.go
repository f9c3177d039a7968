package chat

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	ports "kbchat/internal/chat/ports"
)

// ErrBadRequest is returned when sessionID or message is empty. No side
// effects have been performed when it is returned.
var ErrBadRequest = errors.New("session ID and message are required")

const offlineNotice = "I'm currently offline. Please check your system configuration."

const suggestionPreamble = "I'm having trouble connecting to both AI services (OpenAI & Hugging Face), but I can help you with these topics from our Knowledge Base:"

// Liveness reports whether the persistent store is reachable. Probed once
// per request; every store-dependent step follows the same answer.
type Liveness interface {
	Alive(ctx context.Context) bool
}

// Orchestrator drives one chat request through the degradation pipeline:
// resolve the conversation, retrieve context, run the provider chain,
// compute the offline fallback if the chain is exhausted, and persist the
// turn to whichever store is available.
type Orchestrator struct {
	health Liveness

	conversations ports.ConversationStore // persistent
	fallbackConvs ports.ConversationStore // process-memory mirror

	articles     ports.ArticleStore // persistent, for suggestion titles
	fallbackArts ports.ArticleStore

	retriever *Retriever
	builder   *PromptBuilder
	chain     *Chain
	analytics ports.AnalyticsSink

	suggestionLimit atomic.Int64
	locks           *sessionLocks
	logger          zerolog.Logger
}

// NewOrchestrator wires the pipeline. The persistent stores may be nil
// when the process started without a database; everything then runs on
// the fallback stores.
func NewOrchestrator(
	health Liveness,
	conversations, fallbackConvs ports.ConversationStore,
	articles, fallbackArts ports.ArticleStore,
	retriever *Retriever,
	builder *PromptBuilder,
	chain *Chain,
	analytics ports.AnalyticsSink,
	suggestionLimit int,
	logger zerolog.Logger,
) *Orchestrator {
	o := &Orchestrator{
		health:        health,
		conversations: conversations,
		fallbackConvs: fallbackConvs,
		articles:      articles,
		fallbackArts:  fallbackArts,
		retriever:     retriever,
		builder:       builder,
		chain:         chain,
		analytics:     analytics,
		locks:         newSessionLocks(),
		logger:        logger,
	}
	o.SetSuggestionLimit(suggestionLimit)
	return o
}

// SetSuggestionLimit adjusts the offline suggestion cap. Safe to call
// while requests are in flight; config reloads apply through it.
func (o *Orchestrator) SetSuggestionLimit(n int) {
	if n <= 0 {
		n = 5
	}
	o.suggestionLimit.Store(int64(n))
}

// Handle processes one user message and returns the assistant's reply.
// Degradation is invisible to the caller: the reply may come from a
// provider, from raw retrieved articles, or from a topic suggestion, and
// is never labeled as degraded.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, message string) (string, error) {
	if sessionID == "" || message == "" {
		return "", ErrBadRequest
	}

	logger := o.logger.With().Str("session", sessionID).Logger()
	logger.Info().Str("message", message).Msg("chat request")

	// Single writer per session; other sessions proceed in parallel.
	release := o.locks.acquire(sessionID)
	defer release()

	conv, persistentOK := o.resolveConversation(ctx, sessionID, logger)

	contextArticles := o.retriever.Retrieve(ctx, message, persistentOK)
	contextFound := len(contextArticles) > 0

	conv.Turns = append(conv.Turns, ports.Turn{
		Role:      ports.RoleUser,
		Content:   message,
		CreatedAt: time.Now(),
	})

	messages := o.builder.Build(contextArticles, conv.Turns)

	answer, ok := o.chain.Complete(ctx, messages)
	if !ok {
		answer = o.offlineAnswer(ctx, contextArticles, persistentOK, logger)
	}

	conv.Turns = append(conv.Turns, ports.Turn{
		Role:      ports.RoleAssistant,
		Content:   answer,
		CreatedAt: time.Now(),
	})

	o.persist(ctx, conv, message, contextFound, persistentOK, logger)

	return answer, nil
}

// History returns the transcript for a session, from whichever store is
// currently reachable. Unknown sessions yield an empty transcript.
func (o *Orchestrator) History(ctx context.Context, sessionID string) []ports.Turn {
	if o.conversations != nil && o.health.Alive(ctx) {
		conv, err := o.conversations.Find(ctx, sessionID)
		if err == nil {
			return conv.Turns
		}
		if !errors.Is(err, ports.ErrNotFound) {
			o.logger.Warn().Err(err).Str("session", sessionID).Msg("history lookup failed, using fallback")
			// fall through to the fallback store
		} else {
			return []ports.Turn{}
		}
	}

	conv, err := o.fallbackConvs.Find(ctx, sessionID)
	if err != nil {
		return []ports.Turn{}
	}
	return conv.Turns
}

// resolveConversation loads or lazily creates the session transcript and
// settles the store-availability signal for the rest of the request.
func (o *Orchestrator) resolveConversation(ctx context.Context, sessionID string, logger zerolog.Logger) (*ports.Conversation, bool) {
	if o.conversations != nil && o.health.Alive(ctx) {
		conv, err := o.conversations.Find(ctx, sessionID)
		switch {
		case err == nil:
			return conv, true
		case errors.Is(err, ports.ErrNotFound):
			return &ports.Conversation{SessionID: sessionID}, true
		default:
			logger.Warn().Err(err).Msg("database unavailable, using in-memory store")
		}
	}

	conv, err := o.fallbackConvs.Find(ctx, sessionID)
	if err != nil {
		conv = &ports.Conversation{SessionID: sessionID}
	}
	return conv, false
}

// offlineAnswer is the last resort after provider exhaustion: hand the
// user the raw source material, or suggest known topics, or admit to
// being offline.
func (o *Orchestrator) offlineAnswer(ctx context.Context, contextArticles []ports.Article, persistentOK bool, logger zerolog.Logger) string {
	if len(contextArticles) > 0 {
		blocks := make([]string, 0, len(contextArticles))
		for _, a := range contextArticles {
			blocks = append(blocks, "### "+a.Title+"\n"+a.Content)
		}
		return strings.Join(blocks, "\n\n---\n\n")
	}

	titles := o.knownTitles(ctx, persistentOK)
	if len(titles) == 0 {
		return offlineNotice
	}

	var b strings.Builder
	b.WriteString(suggestionPreamble)
	b.WriteString("\n\n")
	for i, t := range titles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("• " + t)
	}
	b.WriteString("\n\nPlease try asking about one of these.")
	logger.Info().Int("titles", len(titles)).Msg("offline suggestion answer")
	return b.String()
}

// knownTitles gathers article titles from both stores concurrently,
// dedupes by title with persistent-store titles first, and caps the list.
// Duplicate titles across the two stores are possible; within the merged
// list only the first occurrence survives.
func (o *Orchestrator) knownTitles(ctx context.Context, persistentOK bool) []string {
	limit := int(o.suggestionLimit.Load())

	var dbTitles, memTitles []string

	var wg conc.WaitGroup
	if persistentOK && o.articles != nil {
		wg.Go(func() {
			titles, err := o.articles.Titles(ctx, limit)
			if err == nil {
				dbTitles = titles
			}
		})
	}
	wg.Go(func() {
		titles, err := o.fallbackArts.Titles(ctx, limit)
		if err == nil {
			memTitles = titles
		}
	})
	wg.Wait()

	seen := make(map[string]bool, limit)
	merged := make([]string, 0, limit)
	for _, t := range append(dbTitles, memTitles...) {
		if seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
		if len(merged) >= limit {
			break
		}
	}
	return merged
}

// persist saves the turn to the persistent store when possible, mirroring
// the full transcript to the fallback store otherwise so later turns in
// the same session stay consistent. Analytics loss on the mirror path is
// accepted behavior.
func (o *Orchestrator) persist(ctx context.Context, conv *ports.Conversation, query string, contextFound, persistentOK bool, logger zerolog.Logger) {
	if persistentOK && o.conversations != nil {
		if err := o.conversations.Save(ctx, conv); err == nil {
			if o.analytics != nil {
				rec := ports.AnalyticsRecord{
					Query:             query,
					SessionID:         conv.SessionID,
					ResponseGenerated: true,
					ContextFound:      contextFound,
				}
				if err := o.analytics.Record(ctx, rec); err != nil {
					logger.Warn().Err(err).Msg("analytics write failed")
				}
			}
			return
		} else {
			logger.Warn().Err(err).Msg("failed to save to database, mirroring to memory")
		}
	}

	if err := o.fallbackConvs.Save(ctx, conv); err != nil {
		logger.Error().Err(err).Msg("fallback save failed")
	}
}
