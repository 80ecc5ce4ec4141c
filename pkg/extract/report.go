package extract

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/httpseal/trafficsift/internal/config"
)

// csvHeader is the first row of a CSV report
var csvHeader = []string{"value", "index", "url", "field"}

// WriteReport writes findings in the given format. Nothing at all is written
// when findings is empty.
func WriteReport(w io.Writer, format config.OutputFormat, findings []Finding) error {
	if len(findings) == 0 {
		return nil
	}

	switch format {
	case config.FormatText, "":
		return writeText(w, findings)
	case config.FormatJSON:
		return writeJSON(w, findings)
	case config.FormatCSV:
		return writeCSV(w, findings)
	default:
		return fmt.Errorf("%w '%s'", config.ErrInvalidFormat, format)
	}
}

// writeText writes one value per line
func writeText(w io.Writer, findings []Finding) error {
	bw := bufio.NewWriter(w)
	for _, f := range findings {
		if _, err := bw.WriteString(f.Value); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeJSON(w io.Writer, findings []Finding) error {
	data, err := json.MarshalIndent(findings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

// writeCSV writes one row per source of each finding
func writeCSV(w io.Writer, findings []Finding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, f := range findings {
		for _, src := range f.Sources {
			row := []string{f.Value, strconv.Itoa(src.Index), src.URL, string(src.Field)}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}
