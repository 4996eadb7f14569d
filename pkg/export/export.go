// Package export renders alert history for reporting tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/acasal/alertd/core/model"
)

// WriteJSON writes the alerts to w in JSON format.
func WriteJSON(w io.Writer, alerts []model.Alert) error {
	enc := json.NewEncoder(w)
	return enc.Encode(alerts)
}

// WriteCSV writes the alerts to w in CSV format.
func WriteCSV(w io.Writer, alerts []model.Alert) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "source_id", "category", "lat", "lon", "state", "created_at"}); err != nil {
		return err
	}
	for _, a := range alerts {
		rec := []string{
			strconv.FormatInt(a.ID, 10),
			a.SourceID,
			string(a.Category),
			strconv.FormatFloat(a.Location.Lat, 'f', 6, 64),
			strconv.FormatFloat(a.Location.Lon, 'f', 6, 64),
			string(a.State),
			a.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
