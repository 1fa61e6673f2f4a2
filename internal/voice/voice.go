// Package voice places spoken notification calls through external providers.
//
// Adapters share one contract: a single outbound request per PlaceCall and no
// internal retry. A rejected call surfaces as *ProviderError.
package voice

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"tweet_monitor/internal/domain"
)

// DefaultMaxContentLen bounds the spoken tweet text.
const DefaultMaxContentLen = 280

// Caller places one voice notification call and returns the provider's call id.
type Caller interface {
	Provider() domain.CallProvider
	PlaceCall(ctx context.Context, req domain.CallRequest) (string, error)
}

// ProviderError is a call the provider refused or could not accept.
type ProviderError struct {
	Provider   domain.CallProvider
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s rejected call", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " code=%s", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": " + e.Message)
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error { return domain.ErrProviderRejected }

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

var markupReplacer = strings.NewReplacer("&", " and ", "<", "", ">", "")

// SanitizeMarkup makes content safe to embed in TwiML and bounds its length.
func SanitizeMarkup(content string, maxLen int) string {
	return truncate(collapse(markupReplacer.Replace(content)), maxLen)
}

var templateReplacer = strings.NewReplacer("$", "", "{", "", "}", "", "\r", " ", "\n", " ", "\t", " ")

// SanitizeTemplate strips placeholder syntax and line breaks that TTS
// templates reject, then bounds the length.
func SanitizeTemplate(content string, maxLen int) string {
	return truncate(collapse(templateReplacer.Replace(content)), maxLen)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
