package commands

import (
	"context"
	"fmt"

	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
)

// KeygenCmd generates a new signing keypair sealed with a password.
type KeygenCmd struct {
	KeyID     string `arg:"" help:"Identifier for the new key (e.g. clinic-madrid-01)"`
	Dir       string `help:"Keystore directory" default:"keys" env:"PETCONNECT_KEYSTORE_DIR"`
	Algorithm string `help:"Key algorithm" default:"Ed25519" enum:"Ed25519,ECDSA-P256"`
	Password  string `help:"Password sealing the private key" required:"" env:"PETCONNECT_KEY_PASSWORD"`
}

func (c *KeygenCmd) Run(ctx context.Context) error {
	store, err := keystore.NewFileStore(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	info, err := store.Generate(ctx, c.KeyID, keystore.Algorithm(c.Algorithm), []byte(c.Password))
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	fmt.Printf("Generated key: %s\n", info.KeyID)
	fmt.Printf("Algorithm: %s\n", info.Algorithm)
	fmt.Printf("Fingerprint: %s\n", info.Fingerprint)
	fmt.Println()
	fmt.Println("Public key (register this with the certificate service):")
	fmt.Print(info.PublicKeyPEM)

	return nil
}
