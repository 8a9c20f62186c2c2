// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package holiday

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ErrStaleRecord is returned when cached holidays were written with another
// record version. The caller refetches.
var ErrStaleRecord = errors.New("cached holiday record version mismatch")

// HTTPError is a non-2xx response from the holiday API.
type HTTPError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Status)
}

func newHTTPError(resp *http.Response) *HTTPError {
	status := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if status == "" {
		status = http.StatusText(resp.StatusCode)
	}
	url := ""
	if resp.Request != nil && resp.Request.URL != nil {
		url = resp.Request.URL.String()
	}
	return &HTTPError{StatusCode: resp.StatusCode, Status: status, URL: url}
}

// IsNotFound reports whether err is an HTTPError with status 404. The API
// answers 404 for unknown country codes.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}
