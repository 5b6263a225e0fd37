package main

import (
	"fmt"
	"os"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/skratchdot/open-golang/open"
)

// runReport reads a .cdl coverage file produced by `snesgen build`,
// histograms the ROM-offset distribution of covered (code or data) bytes,
// writes a short text report, and opens it in the platform's default
// viewer.
func runReport(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: snesgen report <coverage-file>")
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading coverage file: %w", err)
	}
	if len(data) < 9 || string(data[:5]) != "CDLv2" {
		return fmt.Errorf("%s is not a CDLv2 coverage file", path)
	}
	flags := data[9:]

	var covered, total int
	var offsets []float64
	for i, b := range flags {
		total++
		if b&0x03 != 0 { // code or data
			covered++
			offsets = append(offsets, float64(i))
		}
	}

	hist := histogram.Hist(20, offsets)

	reportPath := path + ".report.txt"
	f, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(f, "coverage report for %s\n", path)
	fmt.Fprintf(f, "%d of %d ROM bytes covered (%.1f%%)\n\n", covered, total, 100*float64(covered)/float64(total))
	if err := histogram.Fprint(f, hist, histogram.Linear(60)); err != nil {
		return fmt.Errorf("rendering histogram: %w", err)
	}

	fmt.Printf("wrote %s\n", reportPath)
	return open.Run(reportPath)
}
