package session

import (
	"strings"

	"quantum-ratchet/common"

	"github.com/sirupsen/logrus"
)

// DecryptHistory replays a stored conversation from the very first message.
// Both chains must still be at step 0. msgs must be the complete transcript
// in order; the returned copy has every encrypted text replaced by its
// plaintext, or by the failure placeholder when it cannot be opened.
// Plaintext messages are passed through and consume no key.
//
// Both locks are held for the whole replay, so no live message can take a
// key from the middle of the history.
func (s *Session) DecryptHistory(msgs []common.Message) ([]common.Message, error) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	s.recvMu.Lock()
	defer s.recvMu.Unlock()

	if s.send.Step() != 0 || s.recv.Step() != 0 {
		return nil, ErrReplayStateMismatch
	}

	out := make([]common.Message, len(msgs))
	copy(out, msgs)

	var failed int
	for i := range out {
		if !s.cfg.IsEncrypted(out[i].Message) {
			continue
		}
		chain, direction, from := s.recv, "recv", s.peer
		if strings.ToLower(out[i].Sender) == s.self {
			chain, direction, from = s.send, "send", s.self
		}

		plaintext, err := s.openNext(chain, from, out[i].Message)
		if err != nil {
			failed++
			s.log.WithFields(logrus.Fields{
				"id":    out[i].ID,
				"chain": direction,
				"step":  chain.Step(),
			}).WithError(err).Warn("failed to decrypt history message")
			out[i].Message = s.cfg.FailurePlaceholder
			continue
		}
		out[i].Message = plaintext
	}

	s.log.WithFields(logrus.Fields{
		"messages": len(out),
		"failed":   failed,
		"send":     s.send.Step(),
		"recv":     s.recv.Step(),
	}).Debug("history replayed")
	return out, nil
}
