package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/i-bosquet/petconnect-sub002/internal/qr"
)

// DecodeCmd prints a QR token's envelope and payload without verifying
// anything.
type DecodeCmd struct {
	Token string `arg:"" optional:"" help:"QR token (HC1:...), read from stdin when omitted"`
}

func (c *DecodeCmd) Run(ctx context.Context) error {
	token, err := readToken(c.Token)
	if err != nil {
		return err
	}

	env, err := qr.Decode(token)
	if err != nil {
		return err
	}

	fmt.Printf("Version:     %s\n", env.Version)
	fmt.Printf("Number:      %s\n", env.Number)
	fmt.Printf("Issued at:   %s\n", time.Unix(env.IssuedAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Hash:        %s\n", env.Hash)
	fmt.Printf("Vet key:     %s\n", env.VetKeyID)
	fmt.Printf("Clinic key:  %s\n", env.ClinicKeyID)
	fmt.Println()

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, env.Payload, "", "  "); err != nil {
		return fmt.Errorf("failed to format payload: %w", err)
	}

	fmt.Println(pretty.String())

	return nil
}
