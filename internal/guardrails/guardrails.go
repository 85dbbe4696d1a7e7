// Package guardrails applies the response policy to provider output text.
package guardrails

import (
	"fmt"
	"strings"
)

// Config is the policy applied to every provider response.
// Invariant: MinLength <= MaxLength.
type Config struct {
	BannedPhrases     []string `json:"bannedPhrases"`
	MinLength         int      `json:"minLength"`
	MaxLength         int      `json:"maxLength"`
	RequireDisclaimer bool     `json:"requireDisclaimer"`
	Disclaimer        string   `json:"disclaimer,omitempty"`
}

// Violation reports a policy rejection.
type Violation struct {
	Reason string
}

func (v *Violation) Error() string { return "guardrail violation: " + v.Reason }

// Apply filters text through the policy. The order is fixed:
//  1. reject when shorter than MinLength
//  2. truncate to MaxLength
//  3. reject when the original text contains a banned phrase
//  4. append the disclaimer
//
// The banned-phrase scan runs against the original text, so truncation
// cannot hide a phrase in the removed tail.
func (c Config) Apply(text string) (string, error) {
	if len(text) < c.MinLength {
		return "", &Violation{Reason: "response too short"}
	}

	out := text
	if c.MaxLength > 0 && len(out) > c.MaxLength {
		out = out[:c.MaxLength]
	}

	lower := strings.ToLower(text)
	for _, phrase := range c.BannedPhrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return "", &Violation{Reason: fmt.Sprintf("banned phrase %q", phrase)}
		}
	}

	if c.RequireDisclaimer && c.Disclaimer != "" {
		out += "\n\n" + c.Disclaimer
	}
	return out, nil
}
