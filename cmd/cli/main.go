package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/i-bosquet/petconnect-sub002/cmd/cli/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Keygen   commands.KeygenCmd   `cmd:"" help:"Generate a signing keypair in the keystore"`
		Pubkey   commands.PubkeyCmd   `cmd:"" help:"Print a stored key's public PEM"`
		Decode   commands.DecodeCmd   `cmd:"" help:"Decode a certificate QR token"`
		Verify   commands.VerifyCmd   `cmd:"" help:"Verify a certificate QR token"`
		Register commands.RegisterCmd `cmd:"" help:"Download a clinic's certificate register"`
		Debug    bool                 `help:"Enable debug mode."`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
