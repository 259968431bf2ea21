package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/kontext-run/kontext-core/pkg/verify"
)

// runVerifyCmd implements `kontext verify --tx --amount --token --from --to
// --agent`: a full orchestrator call against the persisted store.
//
// Exit codes: 0 compliant, 1 non-compliant or blocked, 2 usage/runtime error.
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		tx, amount, token, from, to, agent, chainName, tierFlag, correlation string
		jsonOutput                                                          bool
	)
	cmd.StringVar(&tx, "tx", "", "Transaction hash")
	cmd.StringVar(&amount, "amount", "", "Transfer amount (REQUIRED)")
	cmd.StringVar(&token, "token", "", "Token symbol (REQUIRED)")
	cmd.StringVar(&from, "from", "", "Source address (REQUIRED)")
	cmd.StringVar(&to, "to", "", "Destination address (REQUIRED)")
	cmd.StringVar(&agent, "agent", "", "Agent ID (REQUIRED)")
	cmd.StringVar(&chainName, "chain", "base", "Chain name")
	cmd.StringVar(&tierFlag, "tier", "free", "Plan tier (free|pro|enterprise)")
	cmd.StringVar(&correlation, "correlation", "", "Correlation ID")
	cmd.BoolVar(&jsonOutput, "json", false, "Output result as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	tier, err := parseTier(tierFlag)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	ctx := context.Background()
	vc, adapter, err := openStore(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	result, err := vc.Verify(ctx, tier, verify.Input{
		AgentID:       agent,
		TxHash:        tx,
		Chain:         chainName,
		Amount:        amount,
		Token:         token,
		From:          from,
		To:            to,
		CorrelationID: correlation,
	})
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	closeStore(ctx, vc, adapter)

	if jsonOutput {
		data, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		status := "COMPLIANT"
		if !result.Compliant {
			status = "NON-COMPLIANT"
		}
		_, _ = fmt.Fprintf(stdout, "%s (risk: %s, trust: %d)\n", status, result.RiskLevel, result.TrustScore)
		_, _ = fmt.Fprintf(stdout, "Chain length: %d, terminal digest: %s\n", result.DigestProof.ChainLength, result.DigestProof.TerminalDigest)
		if len(result.Anomalies) > 0 {
			_, _ = fmt.Fprintf(stdout, "Anomalies detected: %d\n", len(result.Anomalies))
			for _, a := range result.Anomalies {
				_, _ = fmt.Fprintf(stdout, "  - [%s] %s: %s\n", a.Severity, a.Type, a.Description)
			}
		}
		if result.Task != nil {
			_, _ = fmt.Fprintf(stdout, "Approval task created: %s (status: %s)\n", result.Task.ID, result.Task.Status)
		}
	}

	if !result.Compliant {
		return 1
	}
	return 0
}
