// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"net/http"
	"strings"

	"budgetflow/internal/core"
)

const maxPeriodIDLength = 128

// ParsePeriodID reads the {periodId} path segment. It returns an error
// response when the id is empty or implausibly long.
func ParsePeriodID(r *http.Request) (string, *ResponseBuilder) {
	id := sanitizeInput(r.PathValue("periodId"))
	if id == "" {
		return "", BadRequestError("period id is required")
	}
	if len(id) > maxPeriodIDLength {
		return "", BadRequestError("period id is too long")
	}
	return id, nil
}

// ParseViewModeParam reads ?viewMode=, defaulting to daily.
func ParseViewModeParam(r *http.Request) (core.ViewMode, *ResponseBuilder) {
	mode, err := core.ParseViewMode(r.URL.Query().Get("viewMode"))
	if err != nil {
		return "", BadRequestError(err.Error())
	}
	return mode, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}
