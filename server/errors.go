// server/errors.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/restrict"
)

var (
	ErrBadPoint       = errors.New("Invalid point")
	ErrBadRequestBody = errors.New("Invalid request body")
	ErrBatchTooLarge  = errors.New("Too many points in batch")
)

// errorStatus maps errors that the handlers may return to HTTP status
// codes; anything else is an internal error.
var errorStatus = []struct {
	err    error
	status int
}{
	{ErrBadPoint, http.StatusBadRequest},
	{ErrBadRequestBody, http.StatusBadRequest},
	{ErrBatchTooLarge, http.StatusRequestEntityTooLarge},
	{geodesy.ErrUnknownProvider, http.StatusBadRequest},
	{aviation.ErrUnknownAirport, http.StatusNotFound},
	{restrict.ErrGeometryUnavailable, http.StatusServiceUnavailable},
}

func statusForError(err error) int {
	for _, es := range errorStatus {
		if errors.Is(err, es.err) {
			return es.status
		}
	}
	return http.StatusInternalServerError
}

func writeJSONError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
