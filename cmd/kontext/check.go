package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/kontext-run/kontext-core/pkg/compliance"
)

// runCheckCmd implements `kontext check <from> [<to>] --amount --token`.
//
// Runs a stateless compliance verdict with no chain/store side effects.
//
// Exit codes: 0 clear, 1 non-compliant, 2 usage.
func runCheckCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("check", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		amount     string
		token      string
		chainName  string
		tierFlag   string
		jsonOutput bool
	)
	cmd.StringVar(&amount, "amount", "", "Transfer amount (REQUIRED)")
	cmd.StringVar(&token, "token", "", "Token symbol (REQUIRED)")
	cmd.StringVar(&chainName, "chain", "base", "Chain name")
	cmd.StringVar(&tierFlag, "tier", "free", "Plan tier (free|pro|enterprise)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output verdict as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	rest := cmd.Args()
	if len(rest) < 1 || amount == "" || token == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: kontext check <from> [<to>] --amount --token")
		return 2
	}

	from := rest[0]
	to := ""
	if len(rest) > 1 {
		to = rest[1]
	}

	tier, err := parseTier(tierFlag)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	engine, err := compliance.NewEngine(compliance.DefaultThresholds(), nil, nil)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	verdict, err := engine.Evaluate(compliance.TransactionIntent{
		Chain:  chainName,
		Amount: amount,
		Token:  token,
		From:   from,
		To:     to,
	}, tier)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(verdict, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		printVerdict(stdout, verdict)
	}

	if !verdict.Compliant {
		return 1
	}
	return 0
}

func printVerdict(w io.Writer, v compliance.Verdict) {
	status := "CLEAR"
	if !v.Compliant {
		status = "NON-COMPLIANT"
	}
	_, _ = fmt.Fprintf(w, "%s (risk: %s)\n", status, v.RiskLevel)
	for _, c := range v.Checks {
		mark := "pass"
		if !c.Passed {
			mark = "FAIL"
		}
		_, _ = fmt.Fprintf(w, "  [%s] %s: %s\n", mark, c.Name, c.Description)
	}
	for _, r := range v.Recommendations {
		_, _ = fmt.Fprintf(w, "  -> %s\n", r)
	}
}
