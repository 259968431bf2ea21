package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kontext-run/kontext-core/pkg/export"
	"github.com/kontext-run/kontext-core/pkg/trust"
)

// runCertCmd implements `kontext cert --agent [--output]`: emits a
// compliance certificate for the agent's history in the persisted store.
//
// Exit codes: 0 emitted, 2 usage/runtime error.
func runCertCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("cert", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var agent, output string
	cmd.StringVar(&agent, "agent", "", "Agent ID (REQUIRED)")
	cmd.StringVar(&output, "output", "", "Write certificate JSON to file instead of stdout")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if agent == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: kontext cert --agent [--output]")
		return 2
	}

	ctx := context.Background()
	vc, _, err := openStore(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	scorer := trust.NewScorer(trust.DefaultWeights())
	cert, err := export.BuildCertificate(vc.Store(), vc.Chain(), scorer, agent, time.Now().UTC())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	data, err := json.MarshalIndent(cert, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write certificate: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "Certificate written to %s\n", output)
		return 0
	}

	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
