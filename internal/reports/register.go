// Package reports renders clinic-facing exports of issued certificates.
package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/i-bosquet/petconnect-sub002/internal/certify"
)

const registerSheet = "Certificate Register"

// hashPrefixLen is how much of the payload digest the register shows; enough
// to match a row against a full certificate without printing 64 characters.
const hashPrefixLen = 16

var registerHeader = []string{
	"Number",
	"Pet",
	"Microchip",
	"Vaccine",
	"Valid Until",
	"Issued At",
	"Veterinarian",
	"License",
	"Clinic",
	"Hash",
}

var registerWidths = []float64{18, 16, 20, 16, 14, 22, 20, 14, 20, 20}

// BuildRegister renders the certificates a clinic has issued as an xlsx
// workbook, one row per certificate in the order given.
func BuildRegister(certs []*certify.CertificateView) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(registerSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range registerHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}

		if err := f.SetCellValue(registerSheet, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}

		if err := f.SetCellStyle(registerSheet, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	for i := range registerHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}

		if err := f.SetColWidth(registerSheet, col, col, registerWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, cert := range certs {
		row := i + 2

		for col, value := range registerRow(cert) {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}

			if err := f.SetCellValue(registerSheet, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}

	return buf.Bytes(), nil
}

func registerRow(cert *certify.CertificateView) []any {
	validUntil := ""
	if cert.Record.ValidUntil != nil {
		validUntil = cert.Record.ValidUntil.Format("2006-01-02")
	}

	hash := cert.Hash
	if len(hash) > hashPrefixLen {
		hash = hash[:hashPrefixLen]
	}

	return []any{
		cert.Number,
		cert.Pet.Name,
		cert.Pet.Microchip,
		cert.Record.VaccineName,
		validUntil,
		cert.IssuedAt.Format(time.RFC3339),
		cert.Vet.Name,
		cert.Vet.LicenseNumber,
		cert.Clinic.Name,
		hash,
	}
}
