// Package events provides batch ingestion of transaction events: CSV parsing,
// grouping by (account, product), and content fingerprinting.
package events

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rawblock/surveillance-engine/pkg/models"
)

// expectedHeader is the required input CSV header, in order.
var expectedHeader = []string{
	"timestamp", "account_id", "product_id", "side", "price", "quantity", "event_type",
}

// ReadResult carries the parsed batch plus ingestion bookkeeping.
type ReadResult struct {
	Events      []models.TransactionEvent
	RowsSkipped int
}

// ReadFile opens and parses an event CSV. See ReadCSV for semantics.
func ReadFile(path string) (*ReadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses transaction events from r. A missing or wrong header is
// fatal. Invalid rows are skipped with a warning naming the line number;
// they never fail the batch.
func ReadCSV(r io.Reader) (*ReadResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // row arity validated per-row so bad rows skip, not abort

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("input is empty, expected header %q", strings.Join(expectedHeader, ","))
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	res := &ReadResult{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("[INGEST] line %d: skipping malformed row: %v", line, err)
			res.RowsSkipped++
			continue
		}
		ev, err := parseRow(record)
		if err != nil {
			log.Printf("[INGEST] line %d: skipping invalid row: %v", line, err)
			res.RowsSkipped++
			continue
		}
		res.Events = append(res.Events, ev)
	}
	return res, nil
}

func validateHeader(header []string) error {
	if len(header) != len(expectedHeader) {
		return fmt.Errorf("header has %d columns, expected %d (%s)",
			len(header), len(expectedHeader), strings.Join(expectedHeader, ","))
	}
	for i, col := range header {
		if strings.TrimSpace(col) != expectedHeader[i] {
			return fmt.Errorf("header column %d is %q, expected %q", i+1, col, expectedHeader[i])
		}
	}
	return nil
}

func parseRow(record []string) (models.TransactionEvent, error) {
	var ev models.TransactionEvent
	if len(record) != len(expectedHeader) {
		return ev, fmt.Errorf("row has %d fields, expected %d", len(record), len(expectedHeader))
	}

	ts, err := parseTimestamp(strings.TrimSpace(record[0]))
	if err != nil {
		return ev, fmt.Errorf("timestamp: %w", err)
	}

	price, err := models.PriceFromString(strings.TrimSpace(record[4]))
	if err != nil {
		return ev, fmt.Errorf("price: %w", err)
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(record[5]), 10, 64)
	if err != nil {
		return ev, fmt.Errorf("quantity: %w", err)
	}

	ev = models.TransactionEvent{
		Timestamp: ts,
		AccountID: strings.TrimSpace(record[1]),
		ProductID: strings.TrimSpace(record[2]),
		Side:      models.Side(strings.TrimSpace(record[3])),
		Price:     price,
		Quantity:  qty,
		EventType: models.EventType(strings.TrimSpace(record[6])),
	}
	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}

// parseTimestamp accepts ISO 8601. A trailing Z is UTC; an offset is kept;
// a naive timestamp is treated as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not an ISO 8601 timestamp: %q", s)
}
