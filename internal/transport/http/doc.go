// Package http exposes the reconciliation pipeline over a chi router:
// the lookup bundle, group and party statistics, anomaly views, CSV
// and Excel exports, and health. All errors surface as RFC 7807
// problem documents through the central error handler.
package http
