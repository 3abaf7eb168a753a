package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/annai/internal/transport"
)

// mentionTag strips <@UXXXX> bot mentions out of inbound text.
var mentionTag = regexp.MustCompile(`<@[^>]+>`)

// slackEnvelope is the outer shape of an Events API request.
type slackEnvelope struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge"`
	Event     *slackEvent `json:"event"`
}

type slackEvent struct {
	Type     string `json:"type"`
	Subtype  string `json:"subtype"`
	User     string `json:"user"`
	BotID    string `json:"bot_id"`
	Channel  string `json:"channel"`
	Text     string `json:"text"`
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if s.signingSecret != "" {
		if err := verifySignature(s.signingSecret, r, body, time.Now()); err != nil {
			s.logger.Warn("rejected events request", zap.Error(err))
			s.respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	var envelope slackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch envelope.Type {
	case "url_verification":
		s.respondJSON(w, http.StatusOK, map[string]string{"challenge": envelope.Challenge})
		return
	case "event_callback":
		if ev := toEvent(envelope.Event); ev != nil {
			go s.dispatcher.HandleEvent(context.Background(), ev)
		}
		w.WriteHeader(http.StatusOK)
		return
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// toEvent maps a Slack event to the internal shape, or nil when the event
// should be ignored (bot echoes, message edits, unthreaded chatter).
func toEvent(ev *slackEvent) *transport.Event {
	if ev == nil || ev.BotID != "" || ev.Subtype != "" || ev.User == "" {
		return nil
	}

	threadTS := ev.ThreadTS
	if threadTS == "" {
		threadTS = ev.TS
	}
	text := strings.TrimSpace(mentionTag.ReplaceAllString(ev.Text, ""))

	switch ev.Type {
	case "app_mention":
		return &transport.Event{
			Kind:     transport.KindMention,
			UserID:   ev.User,
			Channel:  ev.Channel,
			ThreadTS: threadTS,
			Text:     text,
		}
	case "message":
		// Only threaded replies participate in a conversation.
		if ev.ThreadTS == "" {
			return nil
		}
		return &transport.Event{
			Kind:     transport.KindThreadMessage,
			UserID:   ev.User,
			Channel:  ev.Channel,
			ThreadTS: ev.ThreadTS,
			Text:     text,
		}
	default:
		return nil
	}
}

// interactionPayload is the decoded form value of a block_actions request.
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
	Container struct {
		MessageTS string `json:"message_ts"`
	} `json:"container"`
	Actions []struct {
		ActionID string `json:"action_id"`
		Value    string `json:"value"`
	} `json:"actions"`
}

func (s *Server) handleInteractions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if s.signingSecret != "" {
		if err := verifySignature(s.signingSecret, r, body, time.Now()); err != nil {
			s.logger.Warn("rejected interactions request", zap.Error(err))
			s.respondError(w, http.StatusUnauthorized, "invalid signature")
			return
		}
	}

	values, err := parseForm(body)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	var payload interactionPayload
	if err := json.Unmarshal([]byte(values.Get("payload")), &payload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if payload.Type != "block_actions" || len(payload.Actions) == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	act := &transport.FeedbackAction{
		UserID:    payload.User.ID,
		Channel:   payload.Channel.ID,
		MessageTS: payload.Container.MessageTS,
		ActionID:  payload.Actions[0].ActionID,
		Value:     payload.Actions[0].Value,
	}
	go s.dispatcher.HandleFeedback(context.Background(), act)
	w.WriteHeader(http.StatusOK)
}

// parseForm decodes an application/x-www-form-urlencoded body. The raw
// bytes are read first so the signature check covers the exact payload.
func parseForm(body []byte) (url.Values, error) {
	return url.ParseQuery(string(body))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
