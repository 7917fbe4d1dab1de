package usecase

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"
)

// NotificationTransport is the outbound chat-bot send port (telegram, or
// any other bot); distinct from the usecase-facing Notifier so multiple
// bots can be multiplexed behind one dispatcher (spec §4.9).
type NotificationTransport interface {
	Name() string
	Send(ctx context.Context, chatTarget, text string) (retryAfter time.Duration, err error)
}

// signatureWindow tracks recent send timestamps for one trailing-20-char
// message signature, enforcing the pattern rate limit.
type signatureWindow struct {
	sentAt          []time.Time
	throttleNoticed bool
}

// NotificationUseCase is the C9 dispatcher: rate-limited, retried,
// truncated, colour-stripped fan-out to one or more chat bots.
type NotificationUseCase struct {
	transports   map[string]NotificationTransport
	defaultChat  string
	silenceList  map[string]bool

	mu      sync.Mutex
	windows map[string]*signatureWindow
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(transports []NotificationTransport, defaultChat string, silenceList []string) *NotificationUseCase {
	byName := make(map[string]NotificationTransport, len(transports))
	for _, t := range transports {
		byName[t.Name()] = t
	}
	silenced := make(map[string]bool, len(silenceList))
	for _, c := range silenceList {
		silenced[c] = true
	}
	return &NotificationUseCase{
		transports:  byName,
		defaultChat: defaultChat,
		silenceList: silenced,
		windows:     make(map[string]*signatureWindow),
	}
}

// Notify is the Notifier port implementation invoked from usecases and the
// log-hook bridge. Selection rule: severity >= WARNING or an explicit
// notify=true flag, and the originating component not on the silence list
// (spec §4.9). Send and its retry waits run synchronously on the caller's
// goroutine; the logger's Warn+ hook therefore calls Notify on a goroutine
// of its own so a log line never waits on a transport.
func (uc *NotificationUseCase) Notify(ctx context.Context, msg NotificationMessage) {
	if uc.silenceList[msg.Component] {
		return
	}
	if msg.Severity != "WARNING" && msg.Severity != "ERROR" && msg.Severity != "CRITICAL" && !msg.Notify {
		return
	}

	text := sanitizeForSend(msg.Text)
	sig := signatureOf(text)

	switch uc.evaluateWindow(sig) {
	case windowDrop:
		return
	case windowThrottleNotice:
		text = ThrottleNotice(sig)
	case windowAllow:
	}

	targets := append([]string{uc.defaultChat}, msg.ExtraBots...)
	for _, target := range targets {
		transport, ok := uc.transports[target]
		if !ok {
			continue
		}
		uc.sendWithRetry(ctx, transport, target, text)
	}
}

// windowDecision is the outcome of the trailing-20-char signature rate
// limit for one candidate message (spec §4.9).
type windowDecision int

const (
	windowAllow windowDecision = iota
	windowThrottleNotice
	windowDrop
)

// evaluateWindow applies the pattern rate limit: at most
// NotificationRateLimitMax real sends with the same signature inside
// NotificationRateLimitWindow; the first message over that cap is replaced
// with a one-time throttling notice, every one after it is dropped until
// the window clears (spec §4.9).
func (uc *NotificationUseCase) evaluateWindow(sig string) windowDecision {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	now := time.Now()
	w, ok := uc.windows[sig]
	if !ok {
		w = &signatureWindow{}
		uc.windows[sig] = w
	}

	cutoff := now.Add(-NotificationRateLimitWindow)
	kept := w.sentAt[:0]
	for _, t := range w.sentAt {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.sentAt = kept

	if len(w.sentAt) >= NotificationRateLimitMax {
		if w.throttleNoticed {
			return windowDrop
		}
		w.throttleNoticed = true
		return windowThrottleNotice
	}

	w.sentAt = append(w.sentAt, now)
	w.throttleNoticed = false
	return windowAllow
}

// sendWithRetry attempts delivery up to NotificationMaxRetries times with
// exponential backoff, honouring an explicit retry-after signal from the
// transport when given (spec §4.9).
func (uc *NotificationUseCase) sendWithRetry(ctx context.Context, transport NotificationTransport, target, text string) {
	backoff := 500 * time.Millisecond
	for attempt := 1; attempt <= NotificationMaxRetries; attempt++ {
		retryAfter, err := transport.Send(ctx, target, text)
		if err == nil {
			return
		}
		if attempt == NotificationMaxRetries {
			return
		}

		wait := backoff
		if retryAfter > 0 {
			wait = retryAfter
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
		backoff *= 2
	}
}

// sanitizeForSend strips terminal-colour escape sequences and truncates to
// NotificationMaxLength characters with an ellipsis (spec §4.9).
func sanitizeForSend(text string) string {
	stripped := stripANSI(text)
	runes := []rune(stripped)
	if len(runes) <= NotificationMaxLength {
		return stripped
	}
	return string(runes[:NotificationMaxLength-1]) + "…"
}

// ansiPattern matches SGR escape sequences; fatih/color (used elsewhere in
// the notify adapter for local console formatting) has no public strip
// helper, so the one regexp-based pass lives here rather than pulling in a
// second colour library for a single call site.
var ansiPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// stripANSI removes terminal SGR colour codes before a message is handed
// to a chat-bot transport (spec §4.9).
func stripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}

// signatureOf returns the trailing 20-character signature used for
// pattern-based rate limiting.
func signatureOf(text string) string {
	runes := []rune(text)
	if len(runes) <= NotificationSignatureTail {
		return text
	}
	return string(runes[len(runes)-NotificationSignatureTail:])
}

// ThrottleNotice is the fixed text appended once per suppressed window.
func ThrottleNotice(sig string) string {
	return fmt.Sprintf("throttling repeated notifications matching %q", sig)
}
