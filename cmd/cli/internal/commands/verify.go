package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/i-bosquet/petconnect-sub002/internal/qr"
)

// VerifyCmd checks a QR token offline: payload digest against the embedded
// hash, then both detached signatures against the given public keys.
type VerifyCmd struct {
	Token     string `arg:"" optional:"" help:"QR token (HC1:...), read from stdin when omitted"`
	VetKey    string `help:"Path to the vet public key PEM" required:""`
	ClinicKey string `help:"Path to the clinic public key PEM" required:""`
}

func (c *VerifyCmd) Run(ctx context.Context) error {
	token, err := readToken(c.Token)
	if err != nil {
		return err
	}

	vetPEM, err := os.ReadFile(c.VetKey)
	if err != nil {
		return fmt.Errorf("failed to read vet public key: %w", err)
	}

	clinicPEM, err := os.ReadFile(c.ClinicKey)
	if err != nil {
		return fmt.Errorf("failed to read clinic public key: %w", err)
	}

	env, err := qr.Decode(token)
	if err != nil {
		return err
	}

	if err := qr.Verify(env, string(vetPEM), string(clinicPEM)); err != nil {
		return fmt.Errorf("certificate %s failed verification: %w", env.Number, err)
	}

	fmt.Printf("Certificate %s verified\n", env.Number)
	fmt.Printf("Issued at: %s\n", time.Unix(env.IssuedAt, 0).UTC().Format(time.RFC3339))
	fmt.Printf("Vet key: %s\n", env.VetKeyID)
	fmt.Printf("Clinic key: %s\n", env.ClinicKeyID)

	return nil
}
