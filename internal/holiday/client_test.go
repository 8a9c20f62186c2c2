// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package holiday

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/staranto/holidayctl/internal/cache"
	"github.com/staranto/holidayctl/internal/storage"
)

const holidays2024 = `[
  {"date":"2024-01-01","localName":"New Year's Day","name":"New Year's Day","countryCode":"US","fixed":false,"global":true,"counties":null,"launchYear":null,"types":["Public"]},
  {"date":"2024-02-12","localName":"Lincoln's Birthday","name":"Lincoln's Birthday","countryCode":"US","fixed":false,"global":false,"counties":["US-CA","US-CT"],"launchYear":null,"types":["Observance"]},
  {"date":"2024-07-04","localName":"Independence Day","name":"Independence Day","countryCode":"US","fixed":false,"global":true,"counties":null,"launchYear":null,"types":["Public"]},
  {"date":"2024-10-14","localName":"Columbus Day","name":"Columbus Day","countryCode":"US","fixed":false,"global":true,"counties":null,"launchYear":null,"types":["Observance"]}
]`

const holidays2025 = `[
  {"date":"2025-12-25","localName":"Christmas Day","name":"Christmas Day","countryCode":"US","fixed":false,"global":true,"counties":null,"launchYear":null,"types":["Public"]}
]`

const countries = `[
  {"countryCode":"SE","name":"Sweden"},
  {"countryCode":"AX","name":"Åland Islands"},
  {"countryCode":"US","name":"United States"},
  {"countryCode":"AD","name":"Andorra"},
  {"countryCode":"ZA","name":"South Africa"}
]`

// fakeAPI serves canned bodies by path and counts requests per path.
type fakeAPI struct {
	mu     sync.Mutex
	bodies map[string]string
	status map[string]int
	hits   map[string]int
	total  atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		bodies: map[string]string{
			"/AvailableCountries":     countries,
			"/PublicHolidays/2024/US": holidays2024,
			"/PublicHolidays/2025/US": holidays2025,
		},
		status: map[string]int{},
		hits:   map[string]int{},
	}
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.total.Add(1)
	f.mu.Lock()
	f.hits[r.URL.Path]++
	body, ok := f.bodies[r.URL.Path]
	code := f.status[r.URL.Path]
	f.mu.Unlock()

	if code != 0 {
		w.WriteHeader(code)
		return
	}
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func (f *fakeAPI) fail(path string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[path] = code
}

func (f *fakeAPI) serve(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeAPI) drop(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bodies, path)
}

func (f *fakeAPI) hitsFor(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *fakeAPI, *cache.Service) {
	t.Helper()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	persistent := cache.NewPersistent(context.Background(), storage.NewMemory())
	c := NewClient(persistent, append([]Option{WithBaseURL(srv.URL)}, opts...)...)
	return c, api, persistent
}

func tooltip(s string) *string { return &s }

func TestPublicHolidaysForYear_FiltersNationalPublic(t *testing.T) {
	c, _, _ := newTestClient(t)

	got := c.PublicHolidaysForYear(context.Background(), "US", 2024)

	want := []DateInfo{
		{Date: Date{2024, 1, 1}, Indicators: []DateIndicator{PublicHolidayIndicator}, Tooltip: tooltip("New Year's Day")},
		{Date: Date{2024, 7, 4}, Indicators: []DateIndicator{PublicHolidayIndicator}, Tooltip: tooltip("Independence Day")},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PublicHolidaysForYear() mismatch (-want +got):\n%s", diff)
	}
}

func TestPublicHolidaysForYear_SingleGlobalPublic(t *testing.T) {
	c, api, _ := newTestClient(t)
	api.serve("/PublicHolidays/2024/US", `[
	  {"date":"2024-03-01","localName":"Regional","name":"Regional","countryCode":"US","global":false,"types":["Public"]},
	  {"date":"2024-05-27","localName":"Memorial Day","name":"Memorial Day","countryCode":"US","global":true,"types":["Public"]}
	]`)

	got := c.PublicHolidaysForYear(context.Background(), "US", 2024)
	require.Len(t, got, 1)
	assert.Equal(t, Date{2024, 5, 27}, got[0].Date)
	require.NotNil(t, got[0].Tooltip)
	assert.Equal(t, "Memorial Day", *got[0].Tooltip)
	assert.True(t, got[0].HasIndicator("public-holiday"))
}

func TestPublicHolidaysForYear_CachesRecords(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	api := newFakeAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	first := NewClient(cache.NewPersistent(ctx, st), WithBaseURL(srv.URL))
	want := first.PublicHolidaysForYear(ctx, "US", 2024)
	require.Len(t, want, 2)

	// A new process reads the durable copy and rebuilds the dates.
	persistent := cache.NewPersistent(ctx, st)
	raw, ok := persistent.Get(ctx, HolidayKey("US", 2024))
	require.True(t, ok)
	assert.Contains(t, string(raw), `"date":{"year":2024,"month":1,"day":1}`)
	assert.Contains(t, string(raw), `"version":1`)

	second := NewClient(persistent, WithBaseURL(srv.URL))
	got := second.PublicHolidaysForYear(ctx, "US", 2024)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cached result mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 1, api.hitsFor("/PublicHolidays/2024/US"))
}

func TestPublicHolidaysForYear_StaleVersionRefetches(t *testing.T) {
	ctx := context.Background()
	c, api, persistent := newTestClient(t)

	require.NoError(t, persistent.Set(ctx, HolidayKey("US", 2024), map[string]any{
		"version":  0,
		"holidays": []any{},
	}, time.Hour))

	got := c.PublicHolidaysForYear(ctx, "US", 2024)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, api.hitsFor("/PublicHolidays/2024/US"))
}

func TestPublicHolidaysForYear_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeAPI)
	}{
		{"http error", func(f *fakeAPI) { f.fail("/PublicHolidays/2024/US", http.StatusInternalServerError) }},
		{"not found", func(f *fakeAPI) { f.drop("/PublicHolidays/2024/US") }},
		{"malformed", func(f *fakeAPI) { f.serve("/PublicHolidays/2024/US", `{"oops":`) }},
		{"not an array", func(f *fakeAPI) { f.serve("/PublicHolidays/2024/US", `{"date":"2024-01-01"}`) }},
		{"bad date", func(f *fakeAPI) {
			f.serve("/PublicHolidays/2024/US", `[{"date":"2024-13-01","localName":"x","global":true,"types":["Public"]}]`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, api, persistent := newTestClient(t)
			tt.setup(api)

			got := c.PublicHolidaysForYear(ctx, "US", 2024)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.False(t, persistent.Has(ctx, HolidayKey("US", 2024)), "failures are not cached")

			_, err := c.FetchPublicHolidaysForYear(ctx, "US", 2024)
			assert.Error(t, err)
		})
	}
}

func TestFetchPublicHolidaysForYear_HTTPError(t *testing.T) {
	c, api, _ := newTestClient(t)
	api.fail("/PublicHolidays/2024/XX", http.StatusNotFound)

	_, err := c.FetchPublicHolidaysForYear(context.Background(), "XX", 2024)

	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusNotFound, he.StatusCode)
	assert.Equal(t, "Not Found", he.Status)
	assert.Contains(t, he.URL, "/PublicHolidays/2024/XX")
	assert.Equal(t, "HTTP 404: Not Found", he.Error())
	assert.True(t, IsNotFound(err))
}

func TestPublicHolidays_PartialFailure(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newTestClient(t)
	api.fail("/PublicHolidays/2025/US", http.StatusServiceUnavailable)

	only2024 := c.PublicHolidaysForYear(ctx, "US", 2024)
	c.ClearHolidayCache(ctx, "US", 0)

	got := c.PublicHolidays(ctx, "US", []int{2024, 2025})
	if diff := cmp.Diff(only2024, got); diff != "" {
		t.Errorf("PublicHolidays() mismatch (-want +got):\n%s", diff)
	}
}

func TestPublicHolidays_KeepsYearOrder(t *testing.T) {
	c, _, _ := newTestClient(t)

	got := c.PublicHolidays(context.Background(), "US", []int{2025, 2024})
	require.Len(t, got, 3)
	assert.Equal(t, 2025, got[0].Date.Year)
	assert.Equal(t, 2024, got[1].Date.Year)
	assert.Equal(t, 2024, got[2].Date.Year)

	assert.Empty(t, c.PublicHolidays(context.Background(), "US", nil))
}

func TestFetchPublicHolidays_Strict(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newTestClient(t)

	got, err := c.FetchPublicHolidays(ctx, "US", []int{2024, 2025})
	require.NoError(t, err)
	assert.Len(t, got, 3)

	api.fail("/PublicHolidays/2026/US", http.StatusBadGateway)
	_, err = c.FetchPublicHolidays(ctx, "US", []int{2024, 2026})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "US 2026")
}

func TestAvailableCountries_SortedAndCached(t *testing.T) {
	ctx := context.Background()
	c, api, _ := newTestClient(t)

	got, err := c.AvailableCountries(ctx)
	require.NoError(t, err)

	names := make([]string, len(got))
	for i, cc := range got {
		names[i] = cc.Name
	}
	assert.Equal(t, []string{"Åland Islands", "Andorra", "South Africa", "Sweden", "United States"}, names)

	again, err := c.AvailableCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, got, again)
	assert.Equal(t, 1, api.hitsFor("/AvailableCountries"))
	assert.EqualValues(t, 1, api.total.Load())
}

func TestAvailableCountries_Locale(t *testing.T) {
	c, _, _ := newTestClient(t, WithLocale(language.Swedish))

	got, err := c.AvailableCountries(context.Background())
	require.NoError(t, err)

	// Swedish sorts Å after Z.
	assert.Equal(t, "Åland Islands", got[len(got)-1].Name)
}

func TestAvailableCountries_Errors(t *testing.T) {
	ctx := context.Background()
	c, api, persistent := newTestClient(t)
	api.fail("/AvailableCountries", http.StatusInternalServerError)

	_, err := c.AvailableCountries(ctx)
	var he *HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusInternalServerError, he.StatusCode)
	assert.False(t, persistent.Has(ctx, CountriesKey))
}

func TestAvailableCountries_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	api := newFakeAPI()
	srv := httptest.NewServer(api)
	defer srv.Close()

	persistent := cache.NewPersistent(ctx, storage.NewMemory(), cache.WithClock(clock))
	c := NewClient(persistent, WithBaseURL(srv.URL), WithTTL(time.Hour))

	_, err := c.AvailableCountries(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = c.AvailableCountries(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, api.hitsFor("/AvailableCountries"))
}

func TestSessionCache_FrontsPersistent(t *testing.T) {
	ctx := context.Background()
	session := cache.NewSession()
	c, api, persistent := newTestClient(t, WithSession(session))

	_ = c.PublicHolidaysForYear(ctx, "US", 2024)
	assert.True(t, session.Has(ctx, HolidayKey("US", 2024)))

	// Dropping the durable copy leaves the session copy serving reads.
	persistent.Delete(ctx, HolidayKey("US", 2024))
	got := c.PublicHolidaysForYear(ctx, "US", 2024)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, api.hitsFor("/PublicHolidays/2024/US"))

	c.ClearAllCaches(ctx)
	assert.Equal(t, 0, session.Len())
}

func TestClearHolidayCache(t *testing.T) {
	ctx := context.Background()
	c, _, persistent := newTestClient(t)

	for _, k := range []string{"holidays_US_2024", "holidays_US_2025", "holidays_CA_2024", "holidays_USX_2024", CountriesKey} {
		require.NoError(t, persistent.Set(ctx, k, 1, 0))
	}

	assert.Equal(t, 1, c.ClearHolidayCache(ctx, "US", 2025))
	assert.Equal(t, 0, c.ClearHolidayCache(ctx, "US", 2025))
	assert.Equal(t, 1, c.ClearHolidayCache(ctx, "US", 0))
	assert.Equal(t, []string{CountriesKey, "holidays_CA_2024", "holidays_USX_2024"}, persistent.Keys())

	// Pattern metacharacters in the code are literal.
	assert.Equal(t, 0, c.ClearHolidayCache(ctx, ".*", 0))

	c.ClearAllCaches(ctx)
	assert.Empty(t, persistent.Keys())
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(cache.NewSession(), WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.AvailableCountries(context.Background())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(cache.NewSession())
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
	assert.Equal(t, DefaultTTL, c.ttl)
	assert.Equal(t, DefaultConcurrency, c.Concurrency())

	c = NewClient(cache.NewSession(), WithBaseURL("http://example.test/api/"), WithHTTPClient(&http.Client{}), WithTimeout(time.Second))
	assert.Equal(t, "http://example.test/api", c.BaseURL())
	assert.Equal(t, time.Second, c.http.Timeout)

	c = NewClient(cache.NewSession(), WithConcurrency(-1))
	assert.Equal(t, DefaultConcurrency, c.Concurrency())
}

func TestWithHTTPClient_CopiesClient(t *testing.T) {
	h := &http.Client{}
	c := NewClient(cache.NewSession(), WithHTTPClient(h))

	assert.Zero(t, h.Timeout)
	assert.Equal(t, DefaultTimeout, c.http.Timeout)
	assert.NotSame(t, h, c.http)
}

// countingAPI answers every path with an empty list after a short delay and
// records the most requests it saw at once.
type countingAPI struct {
	inflight atomic.Int32
	peak     atomic.Int32
	total    atomic.Int32
}

func (a *countingAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := a.inflight.Add(1)
	defer a.inflight.Add(-1)
	a.total.Add(1)
	for {
		p := a.peak.Load()
		if n <= p || a.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte("[]"))
}

func TestPublicHolidays_BoundsConcurrency(t *testing.T) {
	years := make([]int, 60)
	for i := range years {
		years[i] = 1900 + i
	}

	tests := []struct {
		name   string
		limit  int
		want   int
		strict bool
	}{
		{name: "default", want: DefaultConcurrency},
		{name: "custom", limit: 3, want: 3},
		{name: "custom strict", limit: 2, want: 2, strict: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &countingAPI{}
			srv := httptest.NewServer(api)
			defer srv.Close()

			c := NewClient(cache.NewSession(), WithBaseURL(srv.URL), WithConcurrency(tt.limit))
			ctx := context.Background()
			if tt.strict {
				_, err := c.FetchPublicHolidays(ctx, "US", years)
				require.NoError(t, err)
			} else {
				c.PublicHolidays(ctx, "US", years)
			}

			assert.Equal(t, int32(len(years)), api.total.Load())
			assert.LessOrEqual(t, api.peak.Load(), int32(tt.want))
			assert.Positive(t, api.peak.Load())
		})
	}
}

func TestHolidayKey(t *testing.T) {
	assert.Equal(t, "holidays_US_2024", HolidayKey("US", 2024))
	assert.Equal(t, fmt.Sprintf("holidays_%s_%d", "DE", 1999), HolidayKey("DE", 1999))
}
