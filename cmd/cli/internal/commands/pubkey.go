package commands

import (
	"context"
	"fmt"

	"github.com/i-bosquet/petconnect-sub002/internal/keystore"
)

// PubkeyCmd prints a stored key's public PEM on stdout so it can be piped
// into a file or another command.
type PubkeyCmd struct {
	KeyID string `arg:"" help:"Stored key identifier"`
	Dir   string `help:"Keystore directory" default:"keys" env:"PETCONNECT_KEYSTORE_DIR"`
}

func (c *PubkeyCmd) Run(ctx context.Context) error {
	store, err := keystore.NewFileStore(c.Dir)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}

	info, err := store.Info(ctx, c.KeyID)
	if err != nil {
		return fmt.Errorf("failed to look up key: %w", err)
	}

	fmt.Print(info.PublicKeyPEM)

	return nil
}
