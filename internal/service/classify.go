package service

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/voxlane/call-bridge-go/internal/model"
)

// Phrase scanning for lead classification and in-call intent detection. The
// lists are deliberately small and high-precision; a miss only means the lead
// falls back to the turn-count heuristic.

var rejectionPhrases = []string{
	"not interested",
	"no thanks",
	"no thank you",
	"don't call",
	"do not call",
	"stop calling",
	"remove me from",
	"take me off",
	"leave me alone",
	"wrong number",
	"no me interesa",
	"kein interesse",
	"pas intéressé",
	"관심 없",
	"필요 없",
	"전화하지 마",
}

var interestPhrases = []string{
	"interested",
	"tell me more",
	"sounds good",
	"sounds great",
	"sign me up",
	"how much",
	"what's the price",
	"send me",
	"more information",
	"i'd like",
	"i would like",
	"me interesa",
	"관심 있",
	"궁금",
}

var farewellPhrases = []string{
	"goodbye",
	"good bye",
	"bye bye",
	"have a good day",
	"have a great day",
	"talk to you later",
	"take care",
	"안녕히",
}

// ContainsRejection reports whether the text carries an explicit rejection.
func ContainsRejection(text string) bool {
	return containsAnyPhrase(text, rejectionPhrases)
}

// ContainsInterest reports whether the text carries an explicit interest signal.
func ContainsInterest(text string) bool {
	return containsAnyPhrase(text, interestPhrases)
}

// ContainsFarewell reports whether an agent response reads as a closing line.
func ContainsFarewell(text string) bool {
	return containsAnyPhrase(text, farewellPhrases)
}

// ClassifyLead derives a rating from the assembled conversation. Rejection
// takes precedence over everything else; interest plus a sustained exchange
// marks the lead hot; very short calls without signals are cold.
func ClassifyLead(turns []model.Turn) model.LeadRating {
	var b strings.Builder
	for _, t := range turns {
		if t.Role == model.RoleUser {
			b.WriteString(t.Text)
			b.WriteByte('\n')
		}
	}
	userText := b.String()

	if ContainsRejection(userText) {
		return model.LeadLost
	}

	interested := ContainsInterest(userText)
	switch {
	case interested && len(turns) >= 5:
		return model.LeadHot
	case interested:
		return model.LeadWarm
	case len(turns) < 3:
		return model.LeadCold
	default:
		return model.LeadWarm
	}
}

func containsAnyPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if containsPhrase(lower, p) {
			return true
		}
	}
	return false
}

// containsPhrase matches phrase inside text at word boundaries. Boundaries are
// only enforced against ASCII phrase edges; scripts written without spaces
// (Korean in particular) match as plain substrings.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(text[start:], phrase)
		if i < 0 {
			return false
		}
		i += start
		if boundedAt(text, i, len(phrase)) {
			return true
		}
		start = i + 1
	}
}

func boundedAt(text string, idx, length int) bool {
	first, _ := utf8.DecodeRuneInString(text[idx:])
	last, _ := utf8.DecodeLastRuneInString(text[idx : idx+length])

	if first < utf8.RuneSelf {
		before, _ := utf8.DecodeLastRuneInString(text[:idx])
		if before != utf8.RuneError && isWordRune(before) {
			return false
		}
	}
	if last < utf8.RuneSelf {
		after, _ := utf8.DecodeRuneInString(text[idx+length:])
		if after != utf8.RuneError && isWordRune(after) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
