// Package services defines the [Catalog] interface for the upstream music catalog and implements it with [CatalogService].
//
// # Catalog Interface
//
// The CLI, HTTP server, TUI and bulk tasks all talk to the catalog through [Catalog], so they can be tested against a double.
//
// # Request Pipeline
//
// Every operation follows the same path:
//
//  1. [Classifier] turns permalinks into ids (search only)
//  2. [CredentialPool] resolves a token from the region hint
//  3. [Sign] computes the timestamp and signature (stream resolution only)
//  4. [TransportPlan] routes the request through the SOCKS proxy and/or relay
//  5. The raw payload is decoded and mapped onto [models] types
//
// Configuration is validated once in [NewCatalogService]; nothing is read from the environment afterwards.
//
// # Transport
//
// [TransportPlan] is a value built once from config. SOCKS egress uses [golang.org/x/net/proxy] as the dialer of the
// HTTP transport so TLS and plaintext connections are proxied alike. A relay rewrites the target URL to
// relay_url + percent-encoded target and sends the configured client label as User-Agent.
//
// # Error Handling
//
// Failures are returned as [*UpstreamError] whose Kind is one of:
//   - [shared.ErrUpstreamUnavailable] : transport failure, timeout, unparseable or undecodable response
//   - [shared.ErrUpstreamRejected] : structured error body (bad credential, invalid id)
//   - [shared.ErrSignatureRejected] : signed call rejected with 401/403 or a signature/timestamp message
//   - [shared.ErrStreamUnavailable] : track not streamable for the resolved credential
//
// Configuration problems fail with [shared.ErrConfiguration] before any request is made.
//
// # Normalization
//
// Upstream payloads are decoded into unexported raw types (upstream.go) and mapped explicitly. Discography groups are
// decoded one at a time by [ReshapeReleases] so a malformed group is dropped instead of failing the profile.
// [FilterExplicit] is a display filter over an already fetched page and never adjusts totals.
package services
