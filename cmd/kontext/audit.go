package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kontext-run/kontext-core/pkg/export"
)

// runAuditCmd implements `kontext audit [--output]`: verifies chain
// integrity and, on success, writes the full audit JSON export.
//
// Exit codes: 0 valid, 1 invalid chain or runtime error, 2 usage error.
func runAuditCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("audit", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var output string
	cmd.StringVar(&output, "output", "", "Write audit JSON export to file instead of stdout")
	if err := cmd.Parse(args); err != nil {
		return 2
	}

	ctx := context.Background()
	vc, _, err := openStore(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	result := vc.Chain().Verify()
	if !result.Valid {
		_, _ = fmt.Fprintf(stdout, "Chain INVALID: %d links verified before failure", result.LinksVerified)
		if result.FailedAt != nil {
			_, _ = fmt.Fprintf(stdout, " (failed at sequence %d)", *result.FailedAt)
		}
		_, _ = fmt.Fprintln(stdout)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "Chain VALID: %d links verified\n", result.LinksVerified)

	data, err := export.AuditJSON(vc.Store(), vc.Chain(), time.Now().UTC())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if output != "" {
		if err := os.WriteFile(output, data, 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write audit export: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "Audit export written to %s\n", output)
		return 0
	}

	_, _ = fmt.Fprintln(stdout, string(data))
	return 0
}
