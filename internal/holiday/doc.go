// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package holiday fetches countries and public holidays from a Nager.Date
// compatible REST API and keeps them in the persistent cache.
//
// Country lists propagate fetch errors to the caller. Holiday lookups are
// per year and degrade to an empty result so that one bad year does not sink
// a multi-year request.
package holiday
