// Package antibot holds the cheap registration checks that run before any
// rate-limit budget is spent: a honeypot field and an arithmetic challenge.
package antibot

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"pokequest/internal/models"
)

var (
	ErrBotDetected = errors.New("honeypot field filled")
	ErrWrongAnswer = errors.New("wrong captcha answer")
)

const (
	minOperand = 1
	maxOperand = 10
)

// Check runs the honeypot before the arithmetic challenge. Callers must not
// tell the client which of the two failed beyond the generic messages.
func Check(honeypot string, answer, expected models.FlexInt) error {
	if strings.TrimSpace(honeypot) != "" {
		return ErrBotDetected
	}
	if !answer.Set || !expected.Set || answer.Value != expected.Value {
		return ErrWrongAnswer
	}
	return nil
}

// Challenge is a freshly drawn addition. Issued challenges are not
// remembered: the client is expected to draw a new one after any failure.
type Challenge struct {
	A int
	B int
}

func NewChallenge() Challenge {
	return Challenge{
		A: minOperand + rand.Intn(maxOperand-minOperand+1),
		B: minOperand + rand.Intn(maxOperand-minOperand+1),
	}
}

func (c Challenge) Sum() int { return c.A + c.B }

func (c Challenge) Question() string {
	return fmt.Sprintf("Combien font %d + %d ?", c.A, c.B)
}
