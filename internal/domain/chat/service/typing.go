package service

import (
	"context"
	"time"

	"github.com/vadim/neo-chat/internal/domain/chat/entity"
)

// SetInput feeds the local user's current input text into the typing
// tracker. A transition to non-empty broadcasts the typing flag; a
// transition to empty clears it immediately. Every change restarts the
// expiry timer, which clears a stale flag after the configured period of
// inactivity. Writes are best-effort: failures are logged, never
// retried, and the remote side may see stale state for up to one expiry
// interval.
func (s *Session) SetInput(ctx context.Context, text string) {
	s.typingMu.Lock()
	defer s.typingMu.Unlock()

	if s.typingTmr != nil {
		s.typingTmr.Stop()
		s.typingTmr = nil
	}

	if text == "" {
		if s.typingSet {
			s.typingSet = false
			s.writeTyping(ctx, false)
		}
		return
	}

	if !s.typingSet {
		s.typingSet = true
		s.writeTyping(ctx, true)
	}

	// Auto-clear after inactivity. Session.Close stops the timer.
	s.typingTmr = time.AfterFunc(s.engine.cfg.TypingExpiry, func() {
		s.typingMu.Lock()
		defer s.typingMu.Unlock()
		if !s.typingSet || s.ctx.Err() != nil {
			return
		}
		s.typingSet = false
		s.writeTyping(s.ctx, false)
	})
}

func (s *Session) writeTyping(ctx context.Context, isTyping bool) {
	state := entity.TypingState{IsTyping: isTyping, Username: s.username}
	if err := s.engine.repo.SetTyping(ctx, s.chatID, s.userID, state); err != nil {
		s.engine.logger.Warn("writing typing state", "chat_id", s.chatID, "error", err)
	}
}
