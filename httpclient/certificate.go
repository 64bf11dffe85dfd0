package httpclient

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/pkcs12"
)

const fieldCertificate = "certificate"

// hasCertificate reports whether src carries any material at all
func hasCertificate(src CertificateSource) bool {
	switch c := src.(type) {
	case *ArchiveCertificate:
		return c != nil && len(c.Data) > 0
	case *PEMCertificate:
		return c != nil && (len(c.Key) > 0 || len(c.Cert) > 0 || len(c.CA) > 0)
	default:
		return false
	}
}

// completeCertificate reports whether src is usable for an https call
func completeCertificate(src CertificateSource) bool {
	switch c := src.(type) {
	case *ArchiveCertificate:
		return c != nil && len(c.Data) > 0
	case *PEMCertificate:
		return c != nil && len(c.Key) > 0 && len(c.Cert) > 0 && len(c.CA) > 0
	default:
		return false
	}
}

// trustDigest identifies the CA material servers are verified against.
// An archive is hashed whole since it carries its own CA chain.
func trustDigest(src CertificateSource) string {
	h := sha256.New()
	switch c := src.(type) {
	case *ArchiveCertificate:
		h.Write([]byte("archive:"))
		h.Write(c.Data)
	case *PEMCertificate:
		h.Write([]byte("pem:"))
		h.Write(c.CA)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// clientTLSConfig decodes src into a fresh tls.Config.
func clientTLSConfig(src CertificateSource, insecureSkipVerify bool) (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecureSkipVerify, //nolint:gosec // explicit opt-in only
	}

	switch c := src.(type) {
	case *ArchiveCertificate:
		cert, roots, err := decodeArchive(c.Data, c.Passphrase)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
		cfg.RootCAs = roots
	case *PEMCertificate:
		cert, err := tls.X509KeyPair(c.Cert, c.Key)
		if err != nil {
			return nil, newConfigurationErrorf(fieldCertificate, err, "invalid key/certificate pair")
		}
		roots := x509.NewCertPool()
		if !roots.AppendCertsFromPEM(c.CA) {
			return nil, NewConfigurationError(fieldCertificate, "ca contains no PEM certificates")
		}
		cfg.Certificates = []tls.Certificate{cert}
		cfg.RootCAs = roots
	default:
		return nil, NewConfigurationError(fieldCertificate, fmt.Sprintf("unsupported certificate source %T", src))
	}

	return cfg, nil
}

// decodeArchive extracts the client certificate and any bundled CA certificates from a
// PKCS#12 archive. The leaf is the certificate matching the private key; every other
// certificate is trusted as a root.
func decodeArchive(data []byte, passphrase string) (tls.Certificate, *x509.CertPool, error) {
	blocks, err := pkcs12.ToPEM(data, passphrase)
	if err != nil {
		return tls.Certificate{}, nil, newConfigurationErrorf(fieldCertificate, err, "cannot decode certificate archive")
	}

	var key crypto.PrivateKey
	var certs []*x509.Certificate
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			if key, err = parsePrivateKey(b); err != nil {
				return tls.Certificate{}, nil, newConfigurationErrorf(fieldCertificate, err, "cannot parse archive private key")
			}
		case "CERTIFICATE":
			c, err := x509.ParseCertificate(b.Bytes)
			if err != nil {
				return tls.Certificate{}, nil, newConfigurationErrorf(fieldCertificate, err, "cannot parse archive certificate")
			}
			certs = append(certs, c)
		}
	}
	if key == nil {
		return tls.Certificate{}, nil, NewConfigurationError(fieldCertificate, "archive holds no private key")
	}

	var leaf *x509.Certificate
	var chain []*x509.Certificate
	for _, c := range certs {
		if leaf == nil && publicKeyMatches(c.PublicKey, key) {
			leaf = c
			continue
		}
		chain = append(chain, c)
	}
	if leaf == nil {
		return tls.Certificate{}, nil, NewConfigurationError(fieldCertificate, "archive holds no certificate for its private key")
	}

	out := tls.Certificate{Certificate: [][]byte{leaf.Raw}, PrivateKey: key, Leaf: leaf}
	var roots *x509.CertPool
	if len(chain) > 0 {
		roots = x509.NewCertPool()
		for _, c := range chain {
			out.Certificate = append(out.Certificate, c.Raw)
			roots.AddCert(c)
		}
	}
	return out, roots, nil
}

func parsePrivateKey(b *pem.Block) (crypto.PrivateKey, error) {
	if k, err := x509.ParsePKCS1PrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	if k, err := x509.ParsePKCS8PrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	if k, err := x509.ParseECPrivateKey(b.Bytes); err == nil {
		return k, nil
	}
	return nil, errors.New("unsupported private key encoding")
}

func publicKeyMatches(pub crypto.PublicKey, key crypto.PrivateKey) bool {
	var keyPub crypto.PublicKey
	switch k := key.(type) {
	case *rsa.PrivateKey:
		keyPub = &k.PublicKey
	case *ecdsa.PrivateKey:
		keyPub = &k.PublicKey
	case crypto.Signer:
		keyPub = k.Public()
	default:
		return false
	}
	eq, ok := keyPub.(interface{ Equal(crypto.PublicKey) bool })
	return ok && eq.Equal(pub)
}
