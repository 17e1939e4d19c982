// Package ticket renders printable e-tickets.
package ticket

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"

	"github.com/thilaks-prosperr/train-booking-system/shared/models"
)

// Render writes a one-page PDF for a booking.
func Render(d *models.BookingDetails) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+d.PNR, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "ELECTRONIC RESERVATION SLIP")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		"PNR          : " + d.PNR,
		"Status       : " + string(d.Status),
		"Journey date : " + d.JourneyDate.String(),
		"Train        : " + trainLabel(d.Train),
		"From         : " + stationLabel(d.SourceStation, d.Booking.SourceStation),
		"To           : " + stationLabel(d.DestStation, d.Booking.DestStation),
	}
	if d.User != nil {
		lines = append(lines, "Passenger    : "+d.User.FullName)
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 7, "Seats")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 11)
	if len(d.Seats) == 0 {
		pdf.Cell(0, 6, "No seats held")
		pdf.Ln(6)
	}
	for _, s := range d.Seats {
		pdf.Cell(0, 6, fmt.Sprintf("Coach %s  Seat %d", s.Coach, s.SeatNumber))
		pdf.Ln(6)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Total fare: %.2f", d.Fare))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Carry a valid photo identity card during the journey.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}
	return buf.Bytes(), nil
}

func trainLabel(t *models.Train) string {
	if t == nil {
		return "-"
	}
	return strings.TrimSpace(t.Number + " " + t.Name)
}

func stationLabel(s *models.Station, id int64) string {
	if s == nil {
		return fmt.Sprintf("#%d", id)
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Code)
}
