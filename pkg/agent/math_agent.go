package agent

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
)

var mathExpr = regexp.MustCompile(`^\s*(\d+)\s*([+\-*/^])\s*(\d+)\s*$`)

// MathAgent evaluates the single binary arithmetic expressions the router
// already validated as math_operation percepts. It touches no SEM state.
type MathAgent struct{}

func (MathAgent) Run(_ context.Context, _ *sem.Service, percept structures.Percept) (structures.AgentOutput, error) {
	m := mathExpr.FindStringSubmatch(percept.Text)
	if m == nil {
		return structures.AgentOutput{}, fmt.Errorf("math_agent: %q is not a binary expression", percept.Text)
	}
	a, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return structures.AgentOutput{}, fmt.Errorf("math_agent: parse left operand: %w", err)
	}
	b, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return structures.AgentOutput{}, fmt.Errorf("math_agent: parse right operand: %w", err)
	}

	var result int64
	switch m[2] {
	case "+":
		result = a + b
	case "-":
		result = a - b
	case "*":
		result = a * b
	case "/":
		if b == 0 {
			return structures.AgentOutput{}, fmt.Errorf("math_agent: division by zero")
		}
		result = a / b
	case "^":
		result = 1
		for i := int64(0); i < b; i++ {
			result *= a
		}
	}

	return structures.AgentOutput{
		AgentID:        "math_agent",
		Text:           strconv.FormatInt(result, 10),
		Confidence:     1.0,
		ReasoningTrace: strings.TrimSpace(fmt.Sprintf("evaluated %d %s %d = %d", a, m[2], b, result)),
	}, nil
}
