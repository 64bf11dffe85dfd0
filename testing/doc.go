// Package testing groups helpers for exercising the request client without a real
// Qlik Sense deployment.
//
// # Gateway
//
// The gateway subpackage runs an echo server that enforces the xrf handshake, records
// every accepted request and can serve https with mandatory client certificates.
//
// # Certs
//
// The certs subpackage issues throwaway CA, server and client certificates for mutual
// TLS tests.
//
//	import (
//		"github.com/gaborage/qlik-request/testing/certs"
//		"github.com/gaborage/qlik-request/testing/gateway"
//	)
package testing
