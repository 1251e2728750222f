// Package otp fetches one-time login codes from the account mailbox.
// The platform mails a 6-digit code with a recognizable subject; we
// search the inbox over IMAP and pull the code from the newest match.
package otp

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

var (
	// ErrNoMessages means no inbox message matched the subject marker.
	ErrNoMessages = errors.New("no matching messages in inbox")
	// ErrNoCode means matching messages existed but none carried a code.
	ErrNoCode = errors.New("no 6-digit code found in recent messages")
)

var codePattern = regexp.MustCompile(`\b(\d{6})\b`)

// Retriever connects to an IMAP mailbox and extracts login codes.
type Retriever struct {
	Host          string
	Port          int
	User          string
	Password      string
	SubjectMarker string
	// Lookback is how many of the newest matching messages to inspect.
	Lookback int
}

// FetchCode searches the inbox for the subject marker and returns the
// 6-digit code from the newest matching message.
func (r *Retriever) FetchCode(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	addr := fmt.Sprintf("%s:%d", r.Host, r.Port)
	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return "", fmt.Errorf("otp: connect %s: %w", addr, err)
	}
	defer c.Logout()

	if err := c.Login(r.User, r.Password); err != nil {
		return "", fmt.Errorf("otp: login as %s: %w", r.User, err)
	}

	if _, err := c.Select("INBOX", true); err != nil {
		return "", fmt.Errorf("otp: select inbox: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("Subject", r.SubjectMarker)
	ids, err := c.Search(criteria)
	if err != nil {
		return "", fmt.Errorf("otp: search inbox: %w", err)
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("otp: %w", ErrNoMessages)
	}

	lookback := r.Lookback
	if lookback <= 0 {
		lookback = 3
	}
	if len(ids) > lookback {
		ids = ids[len(ids)-lookback:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, lookback)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	// Sequence numbers ascend with age, so keep the last hit: it is the
	// newest message and therefore the current code.
	var subjects []string
	for msg := range messages {
		if msg.Envelope != nil {
			subjects = append(subjects, msg.Envelope.Subject)
		}
	}
	if err := <-done; err != nil {
		return "", fmt.Errorf("otp: fetch envelopes: %w", err)
	}

	code := ExtractCode(subjects)
	if code == "" {
		return "", fmt.Errorf("otp: %w", ErrNoCode)
	}
	return code, nil
}

// ExtractCode returns the 6-digit code from the newest subject that
// carries one. Subjects are ordered oldest first.
func ExtractCode(subjects []string) string {
	for i := len(subjects) - 1; i >= 0; i-- {
		if m := codePattern.FindStringSubmatch(subjects[i]); m != nil {
			return m[1]
		}
	}
	return ""
}
