package api

import (
	"encoding/json"
	"net/http"

	"github.com/vjranagit/latency/pkg/types"
)

const serviceName = "latency"

// regionsEnvelope wraps the report under "regions"
type regionsEnvelope struct {
	Regions *types.LatencyReport `json:"regions"`
}

// versionedEnvelope adds the API version next to the wrapped report
type versionedEnvelope struct {
	APIVersion string               `json:"api_version"`
	Regions    *types.LatencyReport `json:"regions"`
}

// versionResponse is returned by GET on the latency endpoint
type versionResponse struct {
	Service    string   `json:"service"`
	Version    string   `json:"version"`
	APIVersion string   `json:"api_version"`
	Status     string   `json:"status"`
	Records    int      `json:"records"`
	Regions    []string `json:"regions"`
}

// errorResponse is the body of every rejected request
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
