// Package httpclient builds the http.Client used for page fetches and
// document downloads, optionally routed through a SOCKS5 proxy
// (golang.org/x/net/proxy).
package httpclient
