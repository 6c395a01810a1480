// Package server provides HTTP routing, middleware, and the local API surface
// for the stats dashboard.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Auth Endpoints
//
// [AuthHandler] implements the OAuth2 authorization code flow endpoints:
// /api/login issues the authorization redirect with a fresh state nonce,
// /api/callback validates state and exchanges the code, and /api/token and
// /api/refresh expose the exchange and refresh grants over JSON.
//
// The redirect endpoints never surface raw errors to the browser; failures
// terminate in a redirect to the application error route with a
// machine-readable code.
//
// # Stats Endpoints
//
// [StatsHandler] serves the derived listening statistics (/api/stats/*) and
// the session snapshot (/api/session). Upstream failures classified by the
// API client map onto the local surface: expired tokens to 401, rate limits
// to 429 with Retry-After, everything else upstream to 502.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
