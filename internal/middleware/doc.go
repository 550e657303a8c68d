// AuthPulse - Biometric Authentication Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/authpulse

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID assigns or propagates X-Request-ID and seeds the logging
    context with request and correlation IDs.
  - PrometheusMetrics records request counts, latency and in-flight
    requests, labelled by chi route pattern rather than raw path.
  - AccessLog writes one structured log line per request and warns on
    slow requests.

All middleware use the func(http.Handler) http.Handler shape so they can be
passed directly to chi's Router.Use.
*/
package middleware
