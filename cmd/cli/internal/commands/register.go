package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// RegisterCmd downloads a clinic's certificate register workbook from a
// running server.
type RegisterCmd struct {
	ClinicID string `arg:"" help:"Clinic whose register to download"`
	Server   string `help:"Server URL" default:"http://localhost:8080" env:"PETCONNECT_SERVER"`
	Token    string `help:"Bearer token for API authentication" required:"" env:"PETCONNECT_TOKEN"`
	Output   string `help:"Output file" default:"certificate-register.xlsx"`
}

func (c *RegisterCmd) Run(ctx context.Context) error {
	clinicID, err := uuid.Parse(c.ClinicID)
	if err != nil {
		return fmt.Errorf("invalid clinic id %q: %w", c.ClinicID, err)
	}

	client := resty.New().
		SetBaseURL(c.Server).
		SetTimeout(30 * time.Second).
		SetHeader("Authorization", "Bearer "+c.Token)

	resp, err := client.R().
		SetContext(ctx).
		Get("/api/v1/clinics/" + clinicID.String() + "/certificates/register")
	if err != nil {
		return fmt.Errorf("failed to download register: %w", err)
	}

	if resp.IsError() {
		return fmt.Errorf("server returned %s: %s", resp.Status(), resp.String())
	}

	if err := os.WriteFile(c.Output, resp.Body(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", c.Output, err)
	}

	fmt.Printf("Wrote %s (%d bytes)\n", c.Output, len(resp.Body()))

	return nil
}
