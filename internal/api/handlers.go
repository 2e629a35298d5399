// v2
// internal/api/handlers.go

package api

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/vpp-edge/metersim/internal/insights"
	"github.com/vpp-edge/metersim/internal/telemetry"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(
		"<h2>Smart Meter Replay Publisher</h2>" +
			"<ul>" +
			"<li><a href='/status'>/status</a> — live telemetry page</li>" +
			"<li><a href='/api/status'>/api/status</a> — raw JSON API</li>" +
			"<li><a href='/api/insights'>/api/insights</a> — derived grid metrics</li>" +
			"<li><a href='/metrics'>/metrics</a> — prometheus scrape</li>" +
			"</ul>"))
}

var statusTmpl = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head><title>{{.AssetID}} — telemetry status</title></head>
<body>
<h2>Telemetry Status — {{.AssetID}}</h2>
<p>Broker: {{if .Connected}}connected{{else}}disconnected{{end}} |
Row {{.RowIndex}}/{{.TotalRows}} | Published {{.PublishCount}}</p>
{{if .LastError}}<p>Last error: {{.LastError}}</p>{{end}}
{{if .RawJSON}}<pre>{{.RawJSON}}</pre>{{else}}<p>No payload published yet.</p>{{end}}
</body>
</html>
`))

func (s *Server) handleStatusPage(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()

	var raw string
	if snap.LastPayload != nil {
		if b, err := snap.LastPayload.Encode(); err == nil {
			raw = string(b)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := statusTmpl.Execute(w, struct {
		AssetID      string
		Connected    bool
		RowIndex     int
		TotalRows    int
		PublishCount uint64
		LastError    string
		RawJSON      string
	}{
		AssetID:      s.assetID,
		Connected:    snap.MQTTConnected,
		RowIndex:     snap.RowIndex,
		TotalRows:    snap.TotalRows,
		PublishCount: snap.PublishCount,
		LastError:    snap.LastError,
		RawJSON:      raw,
	})
	if err != nil {
		s.log.Warn("status template render failed", "err", err)
	}
}

func (s *Server) handleAPIStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()

	var lastErr any
	if snap.LastError != "" {
		lastErr = snap.LastError
	}
	resp := map[string]any{
		"last_payload":   snap.LastPayload,
		"row_index":      snap.RowIndex,
		"total_rows":     snap.TotalRows,
		"mqtt_connected": snap.MQTTConnected,
		"publish_count":  snap.PublishCount,
		"last_error":     lastErr,
		"mqtt_topic":     s.topic,
		"asset_id":       s.assetID,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleInsights computes the derived grid metrics over the dataset window
// ending at the current cursor.
func (s *Server) handleInsights(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	series := s.windowSeries(snap.RowIndex)
	report := insights.Compute(series, s.co2Factor, s.p2pPrice)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(report)
}

func (s *Server) windowSeries(end int) insights.Series {
	total := s.ds.Len()
	window := s.window
	if window > total {
		window = total
	}

	series := insights.Series{
		Load:  make([]float64, 0, window),
		Solar: make([]float64, 0, window),
		Wind:  make([]float64, 0, window),
	}
	for j := end - window; j < end; j++ {
		idx := ((j % total) + total) % total
		row := s.ds.At(idx)
		series.Load = append(series.Load, row.Float(telemetry.ColPowerCons, 0))
		series.Solar = append(series.Solar, row.Float(telemetry.ColSolar, 0))
		series.Wind = append(series.Wind, row.Float(telemetry.ColWind, 0))
	}
	return series
}
