package ledger

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ExportJSON serializes the full unfiltered log as a JSON array.
func (t *Log) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(t.Filter("all")), "encode transaction log")
}

// ExportCSV serializes the full unfiltered log as CSV. Every field of the
// transaction round-trips through the export.
func (t *Log) ExportCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "kind", "from", "to", "amount", "min_receive", "time", "status", "confidential"}); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	for _, tx := range t.Filter("all") {
		record := []string{
			strconv.FormatUint(tx.ID, 10),
			tx.Kind.String(),
			tx.From,
			tx.To,
			tx.Amount.String(),
			tx.MinReceive.String(),
			tx.Time.Format(time.RFC3339Nano),
			tx.Status.String(),
			strconv.FormatBool(tx.Confidential),
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, "write CSV record")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush CSV")
}
