// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package holiday

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/hashicorp/go-cleanhttp"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/staranto/holidayctl/internal/cache"
)

const (
	DefaultBaseURL = "https://date.nager.at/api/v3"
	DefaultTimeout = 15 * time.Second
	DefaultTTL     = 30 * 24 * time.Hour

	// DefaultConcurrency bounds how many years are fetched at once.
	DefaultConcurrency = 8

	// CountriesKey caches the /AvailableCountries result.
	CountriesKey = "available_countries"

	// recordVersion tags cached holiday record sets.
	recordVersion = 1

	// maxBody caps how much of a response is read.
	maxBody = 8 << 20
)

// Client talks to the holiday API through the persistent cache. A session
// cache, when given, sits in front of it and holds decoded values for the
// life of the process.
type Client struct {
	baseURL    string
	http       *http.Client
	persistent *cache.Service
	session    *cache.Service
	timeout    time.Duration
	ttl        time.Duration
	locale     language.Tag
	limit      int
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the pooled client. h is copied, and a zero Timeout
// on the copy is filled in from WithTimeout or DefaultTimeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h == nil {
			return
		}
		hc := *h
		c.http = &hc
	}
}

// WithTimeout bounds every request. Zero or less means DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithTTL(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithLocale sets the collation used to sort countries by name.
func WithLocale(tag language.Tag) Option {
	return func(c *Client) { c.locale = tag }
}

// WithConcurrency caps the requests in flight for a multi-year fetch. Zero
// or less means DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.limit = n }
}

func WithSession(s *cache.Service) Option {
	return func(c *Client) { c.session = s }
}

// NewClient returns a Client caching into persistent, which must not be nil.
func NewClient(persistent *cache.Service, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		http:       cleanhttp.DefaultPooledClient(),
		persistent: persistent,
		ttl:        DefaultTTL,
		locale:     language.Und,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.limit <= 0 {
		c.limit = DefaultConcurrency
	}
	if c.http.Timeout == 0 {
		c.http.Timeout = c.timeout
	}
	return c
}

// BaseURL is the API root requests go to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HolidayKey is the cache key for one country and year.
func HolidayKey(countryCode string, year int) string {
	return fmt.Sprintf("holidays_%s_%d", countryCode, year)
}

// AvailableCountries returns the supported countries sorted by name.
func (c *Client) AvailableCountries(ctx context.Context) ([]Country, error) {
	if countries, ok := c.lookupCountries(ctx); ok {
		log.Debugf("cache hit: %s", CountriesKey)
		return countries, nil
	}

	var countries []Country
	if err := c.getJSON(ctx, c.baseURL+"/AvailableCountries", &countries); err != nil {
		log.WithError(err).Error("failed to fetch available countries")
		return nil, err
	}

	col := collate.New(c.locale)
	sortCountries(col, countries)

	if err := c.persistent.Set(ctx, CountriesKey, countries, c.ttl); err != nil {
		log.WithError(err).Warn("failed to cache available countries")
	}
	c.remember(ctx, CountriesKey, countries)

	return countries, nil
}

func (c *Client) lookupCountries(ctx context.Context) ([]Country, bool) {
	if c.session != nil {
		if v, ok := cache.Lookup[[]Country](ctx, c.session, CountriesKey); ok {
			return v, true
		}
	}
	v, ok := cache.Lookup[[]Country](ctx, c.persistent, CountriesKey)
	if ok {
		c.remember(ctx, CountriesKey, v)
	}
	return v, ok
}

// PublicHolidaysForYear returns the national public holidays of countryCode
// in year. Failures are logged and yield an empty result.
func (c *Client) PublicHolidaysForYear(ctx context.Context, countryCode string, year int) []DateInfo {
	infos, err := c.FetchPublicHolidaysForYear(ctx, countryCode, year)
	if err != nil {
		log.WithError(err).
			WithField("country", countryCode).
			WithField("year", year).
			Error("failed to fetch holidays")
		return []DateInfo{}
	}
	return infos
}

// FetchPublicHolidaysForYear is PublicHolidaysForYear with the error kept.
func (c *Client) FetchPublicHolidaysForYear(ctx context.Context, countryCode string, year int) ([]DateInfo, error) {
	key := HolidayKey(countryCode, year)

	if infos, ok := c.lookupHolidays(ctx, key); ok {
		log.Debugf("cache hit: %s", key)
		return infos, nil
	}

	u := fmt.Sprintf("%s/PublicHolidays/%d/%s", c.baseURL, year, url.PathEscape(countryCode))

	var raw []PublicHoliday
	if err := c.getJSON(ctx, u, &raw); err != nil {
		return nil, err
	}

	infos := make([]DateInfo, 0, len(raw))
	for _, h := range raw {
		if !h.IsNationalPublic() {
			continue
		}
		info, err := newPublicHolidayInfo(h)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", h.Name, err)
		}
		infos = append(infos, info)
	}

	rec := newRecordSet(infos)
	if err := c.persistent.Set(ctx, key, rec, c.ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to cache holidays")
	}
	c.remember(ctx, key, rec)

	return infos, nil
}

func (c *Client) lookupHolidays(ctx context.Context, key string) ([]DateInfo, bool) {
	if c.session != nil {
		if rec, ok := cache.Lookup[recordSet](ctx, c.session, key); ok {
			if infos, err := rec.infos(); err == nil {
				return infos, true
			}
		}
	}

	rec, ok := cache.Lookup[recordSet](ctx, c.persistent, key)
	if !ok {
		return nil, false
	}
	infos, err := rec.infos()
	if err != nil {
		log.WithError(err).WithField("key", key).Debug("ignoring cached holidays")
		return nil, false
	}
	c.remember(ctx, key, rec)
	return infos, true
}

// Concurrency is the most years fetched at once.
func (c *Client) Concurrency() int {
	return c.limit
}

// PublicHolidays fetches the years concurrently and concatenates the results
// in the order of years. A year that fails contributes nothing.
func (c *Client) PublicHolidays(ctx context.Context, countryCode string, years []int) []DateInfo {
	results := make([][]DateInfo, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, year := range years {
		g.Go(func() error {
			results[i] = c.PublicHolidaysForYear(gctx, countryCode, year)
			return nil
		})
	}
	_ = g.Wait()

	return flatten(results)
}

// FetchPublicHolidays is PublicHolidays that fails if any year fails. The
// remaining requests are cancelled on the first error.
func (c *Client) FetchPublicHolidays(ctx context.Context, countryCode string, years []int) ([]DateInfo, error) {
	results := make([][]DateInfo, len(years))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)
	for i, year := range years {
		g.Go(func() error {
			infos, err := c.FetchPublicHolidaysForYear(gctx, countryCode, year)
			if err != nil {
				return fmt.Errorf("%s %d: %w", countryCode, year, err)
			}
			results[i] = infos
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return flatten(results), nil
}

// ClearHolidayCache drops one year of countryCode, or every year when year is
// zero.
func (c *Client) ClearHolidayCache(ctx context.Context, countryCode string, year int) int {
	if year != 0 {
		key := HolidayKey(countryCode, year)
		if c.session != nil {
			c.session.Delete(ctx, key)
		}
		if c.persistent.Delete(ctx, key) {
			return 1
		}
		return 0
	}

	re := regexp.MustCompile("^holidays_" + regexp.QuoteMeta(countryCode) + "_")
	if c.session != nil {
		c.session.ClearPattern(ctx, re)
	}
	return c.persistent.ClearPattern(ctx, re)
}

// ClearAllCaches empties the persistent cache and removes its storage slot.
func (c *Client) ClearAllCaches(ctx context.Context) {
	if c.session != nil {
		c.session.Clear(ctx)
	}
	c.persistent.Clear(ctx)
}

func (c *Client) remember(ctx context.Context, key string, v any) {
	if c.session == nil {
		return
	}
	if err := c.session.Set(ctx, key, v, c.ttl); err != nil {
		log.WithError(err).WithField("key", key).Debug("failed to remember value")
	}
}

// getJSON GETs u and decodes the body into v.
func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	log.Debugf("GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return newHTTPError(resp)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsArray() {
		return fmt.Errorf("unexpected response from %s: %w", u, errMalformed)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var errMalformed = errors.New("body is not a JSON array")

// sortCountries orders countries by name under col. Collators are not safe
// for concurrent use, so callers build one per call.
func sortCountries(col *collate.Collator, countries []Country) {
	slices.SortStableFunc(countries, func(a, b Country) int {
		return col.CompareString(a.Name, b.Name)
	})
}

func flatten(results [][]DateInfo) []DateInfo {
	n := 0
	for _, r := range results {
		n += len(r)
	}
	out := make([]DateInfo, 0, n)
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// recordSet is the cached form of a holiday list.
type recordSet struct {
	Version  int        `json:"version"`
	Holidays []DateInfo `json:"holidays"`
}

func newRecordSet(infos []DateInfo) recordSet {
	return recordSet{Version: recordVersion, Holidays: infos}
}

func (r recordSet) infos() ([]DateInfo, error) {
	if r.Version != recordVersion {
		return nil, fmt.Errorf("version %d: %w", r.Version, ErrStaleRecord)
	}
	out := make([]DateInfo, 0, len(r.Holidays))
	for _, h := range r.Holidays {
		if !h.Date.Valid() {
			return nil, fmt.Errorf("invalid cached date %s", h.Date)
		}
		out = append(out, h)
	}
	return out, nil
}
