// Package orchestrator drives the per-thread conversation: it classifies
// inbound messages, runs retrieval and answer generation, and advances the
// session state machine.
package orchestrator

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/answer"
	"github.com/hyperjump/annai/internal/corpus"
	"github.com/hyperjump/annai/internal/models"
	"github.com/hyperjump/annai/internal/ranking"
	"github.com/hyperjump/annai/internal/session"
	"github.com/hyperjump/annai/internal/transport"
	"github.com/hyperjump/annai/internal/usagelog"
)

// maxAlternatives bounds the pick list shown when the best match is
// deprecated.
const maxAlternatives = 5

type Orchestrator struct {
	sessions  session.Store
	source    corpus.Source
	ranker    *ranking.Ranker
	generator answer.Generator
	sink      usagelog.Sink
	chat      transport.Chat
	logger    *zap.Logger

	// lockedDocs caches the full document behind each session's locked
	// title so follow-ups skip a corpus fetch. Misses (e.g. after a
	// restart) fall back to resolving the title against a fresh fetch.
	docMu      sync.Mutex
	lockedDocs map[models.SessionKey]*models.SOPDocument
}

type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func New(sessions session.Store, source corpus.Source, ranker *ranking.Ranker, generator answer.Generator, sink usagelog.Sink, chat transport.Chat, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sessions:   sessions,
		source:     source,
		ranker:     ranker,
		generator:  generator,
		sink:       sink,
		chat:       chat,
		logger:     zap.NewNop(),
		lockedDocs: make(map[models.SessionKey]*models.SOPDocument),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleEvent processes one inbound message. It is safe to call from
// concurrent goroutines; session mutations for the same (user, thread)
// pair are serialized by the session store.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev *transport.Event) {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}
	key := models.SessionKey{UserID: ev.UserID, ThreadID: ev.ThreadTS}
	sess := o.sessions.Get(key)

	switch classify(text) {
	case CmdReset:
		o.handleReset(ctx, ev, key)
	case CmdPause:
		o.handlePause(ctx, ev, key, sess)
	case CmdResume:
		o.handleResume(ctx, ev, key, sess)
	case CmdNextStep:
		o.handleStepMove(ctx, ev, key, sess, +1)
	case CmdPrevStep:
		o.handleStepMove(ctx, ev, key, sess, -1)
	case CmdWhatStep:
		o.handleWhatStep(ctx, ev, sess)
	default:
		o.handleFreeText(ctx, ev, key, sess, text)
	}
}

func (o *Orchestrator) handleReset(ctx context.Context, ev *transport.Event, key models.SessionKey) {
	if err := o.sessions.Delete(key); err != nil {
		o.logger.Warn("session delete failed", zap.String("key", key.String()), zap.Error(err))
	}
	o.dropLockedDoc(key)
	o.post(ctx, ev, replyReset, nil)
}

// handlePause steps the bot back and offers the helpfulness buttons. The
// usage-log correlation handle travels in the button value so a vote still
// lands after the session expires. The state check runs inside the store's
// exclusive section; the snapshot read by HandleEvent only gates the
// no-session fast path.
func (o *Orchestrator) handlePause(ctx context.Context, ev *transport.Event, key models.SessionKey, sess models.Session) {
	if sess.State == models.StateIdle {
		o.post(ctx, ev, replyPaused, nil)
		return
	}
	var (
		paused    bool
		lastLogID string
	)
	if err := o.sessions.Update(key, func(s *models.Session) {
		if s.State == models.StateIdle {
			return
		}
		s.State = models.StatePaused
		paused = true
		lastLogID = s.LastLogID
	}); err != nil {
		o.logger.Warn("session update failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if !paused {
		o.post(ctx, ev, replyPaused, nil)
		return
	}
	o.post(ctx, ev, replyPaused, transport.FeedbackBlocks(helpfulPrompt, lastLogID))
}

func (o *Orchestrator) handleResume(ctx context.Context, ev *transport.Event, key models.SessionKey, sess models.Session) {
	if sess.State != models.StatePaused {
		return
	}
	var (
		resumed bool
		title   string
	)
	if err := o.sessions.Update(key, func(s *models.Session) {
		if s.State != models.StatePaused {
			return
		}
		s.State = models.StateActive
		resumed = true
		title = s.LockedDoc
	}); err != nil {
		o.logger.Warn("session update failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if !resumed {
		return
	}
	o.post(ctx, ev, replyResumed(title), nil)
}

// handleStepMove advances or rewinds the local step cursor. No documents
// are fetched and nothing is generated; the cursor never goes below 1.
// The arithmetic happens inside the Update closure so concurrent moves on
// one key each land (the store serializes the read-modify-write per key).
func (o *Orchestrator) handleStepMove(ctx context.Context, ev *transport.Event, key models.SessionKey, sess models.Session, delta int) {
	if sess.State != models.StateActive || sess.LockedDoc == "" {
		return
	}
	var (
		moved bool
		title string
		step  int
	)
	if err := o.sessions.Update(key, func(s *models.Session) {
		if s.State != models.StateActive || s.LockedDoc == "" {
			return
		}
		s.CurrentStep += delta
		if s.CurrentStep < 1 {
			s.CurrentStep = 1
		}
		moved = true
		title = s.LockedDoc
		step = s.CurrentStep
	}); err != nil {
		o.logger.Warn("session update failed", zap.String("key", key.String()), zap.Error(err))
		return
	}
	if !moved {
		return
	}
	if delta > 0 {
		o.post(ctx, ev, replyNextStep(title, step), nil)
	} else {
		o.post(ctx, ev, replyPrevStep(title, step), nil)
	}
}

func (o *Orchestrator) handleWhatStep(ctx context.Context, ev *transport.Event, sess models.Session) {
	if sess.State != models.StateActive || sess.LockedDoc == "" {
		return
	}
	step := sess.CurrentStep
	if step < 1 {
		step = 1
	}
	o.post(ctx, ev, replyWhatStep(sess.LockedDoc, step), nil)
}

// handleFreeText routes non-command text. Mentions always open a fresh
// retrieval; thread replies inside an active session become follow-up
// questions against the locked document, and anything else is ignored.
func (o *Orchestrator) handleFreeText(ctx context.Context, ev *transport.Event, key models.SessionKey, sess models.Session, text string) {
	if ev.Kind == transport.KindMention {
		o.runTopLevelQuery(ctx, ev, key, text)
		return
	}
	if sess.State == models.StateActive && sess.LockedDoc != "" {
		o.runFollowUp(ctx, ev, key, sess, text)
	}
}

// runTopLevelQuery is the full retrieval turn: fetch, rank, generate,
// lock. It applies from any state; a paused or active session that asks a
// new question re-enters retrieval.
func (o *Orchestrator) runTopLevelQuery(ctx context.Context, ev *transport.Event, key models.SessionKey, query string) {
	docs, err := o.source.FetchAll(ctx)
	if err != nil {
		o.logger.Error("corpus fetch failed", zap.Error(err))
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question: query,
			Status:   usagelog.StatusFetchFailed,
		})
		return
	}

	ranked := o.ranker.Rank(docs, query)
	if len(ranked) == 0 {
		o.post(ctx, ev, answer.NoMatchSentinel, nil)
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question: query,
			Status:   usagelog.StatusNoMatch,
		})
		return
	}

	live := liveOnly(ranked)
	if len(live) == 0 {
		o.handleDeprecatedTop(ctx, ev, docs, query, ranked[0].Document)
		return
	}

	candidates := documentsOf(live)
	reply, err := o.generator.Generate(ctx, answer.BuildTopLevelPrompt(query, candidates))
	if err != nil {
		o.logger.Error("answer generation failed", zap.Error(err))
		o.post(ctx, ev, replyApology, nil)
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question: query,
			Status:   usagelog.StatusGenerationFailed,
		})
		return
	}
	if answer.IsNoMatch(reply) {
		o.post(ctx, ev, reply, nil)
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question: query,
			Status:   usagelog.StatusNoMatch,
			Answer:   reply,
		})
		return
	}

	chosen := answer.CommittedTitle(reply, candidates)
	if note := statusNote(chosen); note != "" {
		reply = reply + "\n\n" + note
	}
	o.post(ctx, ev, reply, nil)

	logID := o.recordUsage(ctx, ev, &usagelog.UsageRecord{
		Question:    query,
		ChosenTitle: chosen.Title,
		StepFound:   true,
		Status:      usagelog.StatusSuccess,
		Answer:      reply,
	})

	o.setLockedDoc(key, chosen)
	if err := o.sessions.Update(key, func(s *models.Session) {
		s.State = models.StateActive
		s.LockedDoc = chosen.Title
		s.CurrentStep = 1
		s.LastLogID = logID
	}); err != nil {
		o.logger.Warn("session update failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// handleDeprecatedTop handles the case where every ranked result is
// deprecated: offer live runners-up from the broader pool, or a terminal
// warning when none exist. The session is not changed.
func (o *Orchestrator) handleDeprecatedTop(ctx context.Context, ev *transport.Event, docs []*models.SOPDocument, query string, top *models.SOPDocument) {
	var alternatives []*models.RankedSOP
	for _, r := range o.ranker.RankAll(docs, query) {
		if r.Document.IsDeprecated() {
			continue
		}
		alternatives = append(alternatives, r)
		if len(alternatives) == maxAlternatives {
			break
		}
	}

	if len(alternatives) == 0 {
		o.post(ctx, ev, replyDeprecatedTerminal(top.Title), nil)
	} else {
		o.post(ctx, ev, replyDeprecatedAlternatives(top.Title, alternatives), nil)
	}
	o.recordUsage(ctx, ev, &usagelog.UsageRecord{
		Question:    query,
		ChosenTitle: top.Title,
		Status:      usagelog.StatusDeprecated,
	})
}

// runFollowUp answers inside an active session. Ranking is skipped; the
// locked document alone feeds the generator.
func (o *Orchestrator) runFollowUp(ctx context.Context, ev *transport.Event, key models.SessionKey, sess models.Session, query string) {
	doc, err := o.resolveLockedDoc(ctx, key, sess.LockedDoc)
	if err != nil {
		o.logger.Error("locked document lookup failed", zap.String("title", sess.LockedDoc), zap.Error(err))
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question:    query,
			ChosenTitle: sess.LockedDoc,
			Status:      usagelog.StatusFetchFailed,
		})
		return
	}

	reply, err := o.generator.Generate(ctx, answer.BuildFollowUpPrompt(query, doc))
	if err != nil {
		o.logger.Error("answer generation failed", zap.Error(err))
		o.post(ctx, ev, replyApology, nil)
		o.recordUsage(ctx, ev, &usagelog.UsageRecord{
			Question:    query,
			ChosenTitle: doc.Title,
			Status:      usagelog.StatusGenerationFailed,
		})
		return
	}

	o.post(ctx, ev, reply, nil)
	logID := o.recordUsage(ctx, ev, &usagelog.UsageRecord{
		Question:    query,
		ChosenTitle: doc.Title,
		StepFound:   true,
		Status:      usagelog.StatusSuccess,
		Answer:      reply,
	})
	if err := o.sessions.Update(key, func(s *models.Session) {
		s.LastLogID = logID
	}); err != nil {
		o.logger.Warn("session update failed", zap.String("key", key.String()), zap.Error(err))
	}
}

// HandleFeedback attaches a helpfulness vote to the usage record named in
// the button payload and acknowledges by editing the prompt message. Votes
// work even after the session has expired.
func (o *Orchestrator) HandleFeedback(ctx context.Context, act *transport.FeedbackAction) {
	var verdict usagelog.Verdict
	switch act.ActionID {
	case transport.ActionFeedbackYes:
		verdict = usagelog.VerdictYes
	case transport.ActionFeedbackNo:
		verdict = usagelog.VerdictNo
	case transport.ActionFeedbackEscalate:
		verdict = usagelog.VerdictEscalated
	default:
		o.logger.Warn("unknown feedback action", zap.String("action_id", act.ActionID))
		return
	}

	if act.Value == "" {
		o.logger.Warn("feedback without correlation handle", zap.String("user", act.UserID))
	} else if err := o.sink.RecordFeedback(ctx, act.Value, verdict); err != nil {
		o.logger.Warn("feedback record failed", zap.String("id", act.Value), zap.Error(err))
	}

	var ack string
	switch verdict {
	case usagelog.VerdictYes:
		ack = feedbackAck("yes")
	case usagelog.VerdictNo:
		ack = feedbackAck("no")
	default:
		ack = feedbackAck("escalated")
	}
	if err := o.chat.UpdateMessage(ctx, act.Channel, act.MessageTS, ack); err != nil {
		o.logger.Warn("feedback ack failed", zap.Error(err))
	}
}

func (o *Orchestrator) post(ctx context.Context, ev *transport.Event, text string, blocks []transport.Block) {
	if _, err := o.chat.PostMessage(ctx, ev.Channel, ev.ThreadTS, text, blocks); err != nil {
		o.logger.Error("post message failed", zap.String("channel", ev.Channel), zap.Error(err))
	}
}

// recordUsage writes a usage record and returns its correlation handle.
// Failures are logged and swallowed so the conversation never stalls on
// the log.
func (o *Orchestrator) recordUsage(ctx context.Context, ev *transport.Event, rec *usagelog.UsageRecord) string {
	rec.UserID = ev.UserID
	rec.Channel = ev.Channel
	rec.ThreadID = ev.ThreadTS
	id, err := o.sink.RecordUsage(ctx, rec)
	if err != nil {
		o.logger.Warn("usage record failed", zap.String("status", rec.Status), zap.Error(err))
		return ""
	}
	return id
}

func (o *Orchestrator) setLockedDoc(key models.SessionKey, doc *models.SOPDocument) {
	o.docMu.Lock()
	o.lockedDocs[key] = doc
	o.docMu.Unlock()
}

func (o *Orchestrator) dropLockedDoc(key models.SessionKey) {
	o.docMu.Lock()
	delete(o.lockedDocs, key)
	o.docMu.Unlock()
}

// resolveLockedDoc returns the document behind a locked title, preferring
// the in-memory copy and falling back to a corpus fetch after restarts.
func (o *Orchestrator) resolveLockedDoc(ctx context.Context, key models.SessionKey, title string) (*models.SOPDocument, error) {
	o.docMu.Lock()
	doc := o.lockedDocs[key]
	o.docMu.Unlock()
	if doc != nil && strings.EqualFold(doc.Title, title) {
		return doc, nil
	}

	docs, err := o.source.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if strings.EqualFold(d.Title, title) {
			o.setLockedDoc(key, d)
			return d, nil
		}
	}
	return nil, &missingDocError{title: title}
}

type missingDocError struct{ title string }

func (e *missingDocError) Error() string {
	return "locked document no longer present: " + e.title
}

func liveOnly(ranked []*models.RankedSOP) []*models.RankedSOP {
	var out []*models.RankedSOP
	for _, r := range ranked {
		if !r.Document.IsDeprecated() {
			out = append(out, r)
		}
	}
	return out
}

func documentsOf(ranked []*models.RankedSOP) []*models.SOPDocument {
	docs := make([]*models.SOPDocument, len(ranked))
	for i, r := range ranked {
		docs[i] = r.Document
	}
	return docs
}
