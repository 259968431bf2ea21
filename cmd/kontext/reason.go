package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kontext-run/kontext-core/pkg/store"
)

// runReasonCmd implements `kontext reason "<text>" --agent [--session]
// [--step]`: appends a reasoning entry to the agent's chain.
//
// Exit codes: 0 appended, 2 usage/runtime error.
func runReasonCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("reason", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		agent      string
		session    string
		step       string
		confidence float64
	)
	cmd.StringVar(&agent, "agent", "", "Agent ID (REQUIRED)")
	cmd.StringVar(&session, "session", "", "Session ID")
	cmd.StringVar(&step, "step", "", "Step number")
	cmd.Float64Var(&confidence, "confidence", 1.0, "Confidence 0..1")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	rest := cmd.Args()
	if len(rest) < 1 || agent == "" {
		_, _ = fmt.Fprintln(stderr, `Usage: kontext reason "<text>" --agent [--session] [--step]`)
		return 2
	}
	text := rest[0]

	var stepPtr *int
	if step != "" {
		n, err := strconv.Atoi(step)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: --step must be an integer: %v\n", err)
			return 2
		}
		stepPtr = &n
	}

	ctx := context.Background()
	vc, adapter, err := openStore(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	entry := &store.ReasoningEntry{
		Action: store.Action{
			ActionID:  uuid.NewString(),
			AgentID:   agent,
			Type:      store.ActionTypeReasoning,
			Timestamp: time.Now().UTC(),
		},
		Reasoning:  text,
		Confidence: confidence,
		Step:       stepPtr,
		SessionID:  session,
	}
	if err := vc.Store().AddReasoning(entry); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	closeStore(ctx, vc, adapter)

	_, _ = fmt.Fprintf(stdout, "Reasoning entry appended: %s (sequence %d)\n", entry.ActionID, entry.Sequence)
	return 0
}
