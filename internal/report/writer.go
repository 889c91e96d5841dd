// Package report writes the canonical output files: the suspicious accounts
// CSV and the detection logs CSV.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

var suspiciousAccountsHeader = []string{
	"account_id", "product_id", "total_buy_qty", "total_sell_qty",
	"num_cancelled_orders", "detected_timestamp", "detection_type",
	"alternation_percentage", "price_change_percentage",
}

var detectionLogsHeader = []string{
	"account_id", "product_id", "window_start_timestamp", "detected_timestamp",
	"duration_seconds", "num_cancelled_orders", "total_buy_qty",
	"total_sell_qty", "order_timestamps",
}

// WriteSuspiciousAccounts writes the flat projection of every sequence.
// Variant fields that do not apply to a row are empty strings; wash-trading
// rows carry a zero cancel count.
func WriteSuspiciousAccounts(path string, seqs []models.SuspiciousSequence) error {
	return writeCSV(path, suspiciousAccountsHeader, func(w *csv.Writer) error {
		for _, seq := range seqs {
			alternation := ""
			priceChange := ""
			if seq.AlternationPercentage != nil {
				alternation = formatFloat(*seq.AlternationPercentage)
			}
			if seq.PriceChangePercentage != nil {
				priceChange = formatFloat(*seq.PriceChangePercentage)
			}
			row := []string{
				Sanitize(seq.AccountID),
				Sanitize(seq.ProductID),
				strconv.FormatInt(seq.TotalBuyQty, 10),
				strconv.FormatInt(seq.TotalSellQty, 10),
				strconv.Itoa(seq.NumCancelledOrders),
				formatTimestamp(seq.EndTimestamp),
				string(seq.DetectionType),
				alternation,
				priceChange,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteDetectionLogs writes the per-sequence forensic log. pseudo may be
// nil, in which case account ids pass through unchanged.
func WriteDetectionLogs(path string, seqs []models.SuspiciousSequence, pseudo *Pseudonymizer) error {
	return writeCSV(path, detectionLogsHeader, func(w *csv.Writer) error {
		for _, seq := range seqs {
			account := seq.AccountID
			if pseudo != nil {
				account = pseudo.Apply(account)
			}
			stamps := make([]string, len(seq.OrderTimestamps))
			for i, ts := range seq.OrderTimestamps {
				stamps[i] = formatTimestamp(ts)
			}
			duration := seq.EndTimestamp.Sub(seq.StartTimestamp).Seconds()
			row := []string{
				Sanitize(account),
				Sanitize(seq.ProductID),
				formatTimestamp(seq.StartTimestamp),
				formatTimestamp(seq.EndTimestamp),
				strconv.FormatFloat(duration, 'f', 3, 64),
				strconv.Itoa(seq.NumCancelledOrders),
				strconv.FormatInt(seq.TotalBuyQty, 10),
				strconv.FormatInt(seq.TotalSellQty, 10),
				strings.Join(stamps, ";"),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeCSV creates the parent directory, writes the header, and streams the
// rows through fn.
func writeCSV(path string, header []string, fn func(w *csv.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := fn(w); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Sanitize neutralizes spreadsheet formula injection: a cell containing any
// of the trigger characters is prefixed with a single quote. Applied to
// cells whose content originates from input data.
func Sanitize(cell string) string {
	if strings.ContainsAny(cell, "=+-@\t\r") {
		return "'" + cell
	}
	return cell
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339Nano)
}
