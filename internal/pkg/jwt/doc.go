// Package jwt verifies the bearer tokens presented by services that call the
// mail API.
//
// Tokens are minted elsewhere; this package only checks HS256 signatures,
// issuer, audience and expiry, and carries the verified claims in a context.
package jwt
