package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kontext-run/kontext-core/pkg/export"
)

// runAnchorCmd implements `kontext anchor --issuer --key [--output]`:
// exports the terminal digest wrapped in a JWS for external on-chain
// anchoring. The core never signs or broadcasts on-chain transactions
// itself; it only attests to its own terminal digest.
//
// Exit codes: 0 signed, 2 usage/runtime error.
func runAnchorCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("anchor", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var issuer, keyPath, output, project string
	cmd.StringVar(&issuer, "issuer", "", "Issuer identity embedded in the JWS (REQUIRED)")
	cmd.StringVar(&keyPath, "key", "", "Path to a PEM-encoded EC master key (REQUIRED)")
	cmd.StringVar(&output, "output", "", "Write the signed token to file instead of stdout")
	cmd.StringVar(&project, "project", "", "Derive a project-scoped signing key from --key instead of using it directly")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if issuer == "" || keyPath == "" {
		_, _ = fmt.Fprintln(stderr, "Usage: kontext anchor --issuer --key [--project] [--output]")
		return 2
	}

	key, err := loadECKey(keyPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if project != "" {
		key, err = export.NewAnchorKeyProvider(key).DeriveForProject(project)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
			return 2
		}
	}

	ctx := context.Background()
	vc, _, err := openStore(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	token, err := export.SignAnchor(vc.Chain(), issuer, key, time.Now().UTC())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if output != "" {
		if err := os.WriteFile(output, []byte(token+"\n"), 0o644); err != nil {
			_, _ = fmt.Fprintf(stderr, "Error: cannot write anchor token: %v\n", err)
			return 2
		}
		_, _ = fmt.Fprintf(stdout, "Anchor token written to %s\n", output)
		return 0
	}

	_, _ = fmt.Fprintln(stdout, token)
	return 0
}

func loadECKey(path string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse EC private key: %w", err)
	}
	return key, nil
}
