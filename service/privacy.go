package service

import "regexp"

const (
	REASON_SSN         = "ssn"
	REASON_CASE_NUMBER = "case_number"
)

var (
	ssnPattern        = regexp.MustCompile(`(?:^|\D)\d{3}[-.\s]\d{2}[-.\s]\d{4}(?:\D|$)`)
	caseNumberPattern = regexp.MustCompile(`(?i)\bcase\s*#?\s*\d{6,}`)
)

// ScreenResult is the outcome of a privacy screen. Reason is a tag, never
// the matched text.
type ScreenResult struct {
	Blocked bool
	Reason  string
}

// PrivacyGate rejects input carrying personal identifiers before it reaches
// any store or model.
type PrivacyGate struct{}

func NewPrivacyGate() *PrivacyGate {
	return &PrivacyGate{}
}

func (g *PrivacyGate) Screen(text string) ScreenResult {
	switch {
	case ssnPattern.MatchString(text):
		return ScreenResult{Blocked: true, Reason: REASON_SSN}
	case caseNumberPattern.MatchString(text):
		return ScreenResult{Blocked: true, Reason: REASON_CASE_NUMBER}
	}
	return ScreenResult{}
}
