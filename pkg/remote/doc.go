// Package remote runs commands on and uploads files to a host reachable
// over SSH, optionally through a SOCKS5 proxy. Host, proxy and credentials
// always come from the caller; nothing is built in.
package remote
