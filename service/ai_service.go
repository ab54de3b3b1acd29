package service

import (
	"context"
	"errors"
)

var ErrEmptyCompletion = errors.New("no response generated")

// LLMClient sends one system+user exchange to a chat model and returns the
// text of the first candidate.
type LLMClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const DISCLAIMER = "This information is for general guidance only and is not legal advice. " +
	"Please consult official sources or a qualified professional for your specific situation."

const SYSTEM_PERSONA = "You are a public policy assistant that helps residents understand government programs and rules.\n" +
	"Rules:\n" +
	"- Answer ONLY from the numbered policy excerpts in the context. If the excerpts do not answer the question, say so.\n" +
	"- Reference excerpts inline with their numbers in square brackets, e.g. [1] or [2].\n" +
	"- Do not give legal advice or predict the outcome of an individual application.\n" +
	"- Do not ask for or accept personal case details such as Social Security numbers, case numbers or account information.\n" +
	"- End every answer with this exact sentence: " + DISCLAIMER

const (
	summaryInstruction  = "Give a brief summary answer in at most one short paragraph."
	detailedInstruction = "Give a detailed, step-by-step answer with numbered steps where applicable."
)
