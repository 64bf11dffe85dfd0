package httpclient

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testArchivePassphrase = "secret"

func TestCompleteCertificate(t *testing.T) {
	pemCert := testPEMCertificate(t)

	tests := []struct {
		name     string
		src      CertificateSource
		has      bool
		complete bool
	}{
		{name: "nil", src: nil},
		{name: "nil archive", src: (*ArchiveCertificate)(nil)},
		{name: "empty archive", src: &ArchiveCertificate{Passphrase: "x"}},
		{name: "archive", src: &ArchiveCertificate{Data: []byte{1}}, has: true, complete: true},
		{name: "empty pem", src: &PEMCertificate{}},
		{name: "pem without ca", src: &PEMCertificate{Key: pemCert.Key, Cert: pemCert.Cert}, has: true},
		{name: "pem ca only", src: &PEMCertificate{CA: pemCert.CA}, has: true},
		{name: "pem trio", src: pemCert, has: true, complete: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.has, hasCertificate(tt.src))
			assert.Equal(t, tt.complete, completeCertificate(tt.src))
		})
	}
}

func TestClientTLSConfigPEM(t *testing.T) {
	cfg, err := clientTLSConfig(testPEMCertificate(t), false)
	require.NoError(t, err)

	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.Len(t, cfg.Certificates, 1)
	assert.NotNil(t, cfg.RootCAs)
	assert.False(t, cfg.InsecureSkipVerify)
}

func TestClientTLSConfigPEMErrors(t *testing.T) {
	pemCert := testPEMCertificate(t)

	t.Run("mismatched key", func(t *testing.T) {
		_, err := clientTLSConfig(&PEMCertificate{
			Key:  readTestdata(t, "server_key.pem"),
			Cert: pemCert.Cert,
			CA:   pemCert.CA,
		}, false)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "invalid key/certificate pair")
	})

	t.Run("ca without certificates", func(t *testing.T) {
		_, err := clientTLSConfig(&PEMCertificate{Key: pemCert.Key, Cert: pemCert.Cert, CA: []byte("not pem")}, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ca contains no PEM certificates")
	})
}

func TestClientTLSConfigArchive(t *testing.T) {
	archive := &ArchiveCertificate{Data: readTestdata(t, "client.pfx"), Passphrase: testArchivePassphrase}

	cfg, err := clientTLSConfig(archive, true)
	require.NoError(t, err)
	assert.True(t, cfg.InsecureSkipVerify)

	require.Len(t, cfg.Certificates, 1)
	cert := cfg.Certificates[0]
	require.NotNil(t, cert.Leaf)
	assert.Equal(t, "QlikClient", cert.Leaf.Subject.CommonName)
	assert.Len(t, cert.Certificate, 2, "leaf followed by the bundled CA")
	assert.NotNil(t, cfg.RootCAs)
}

func TestClientTLSConfigArchiveErrors(t *testing.T) {
	t.Run("wrong passphrase", func(t *testing.T) {
		_, err := clientTLSConfig(&ArchiveCertificate{Data: readTestdata(t, "client.pfx"), Passphrase: "wrong"}, false)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "cannot decode certificate archive")
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := clientTLSConfig(&ArchiveCertificate{Data: []byte("not an archive")}, false)
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
	})
}

func TestPublicKeyMatches(t *testing.T) {
	clientCert, err := tls.X509KeyPair(readTestdata(t, "client.pem"), readTestdata(t, "client_key.pem"))
	require.NoError(t, err)
	serverCert, err := tls.X509KeyPair(readTestdata(t, "server.pem"), readTestdata(t, "server_key.pem"))
	require.NoError(t, err)

	assert.True(t, publicKeyMatches(clientCert.Leaf.PublicKey, clientCert.PrivateKey))
	assert.False(t, publicKeyMatches(serverCert.Leaf.PublicKey, clientCert.PrivateKey))
	assert.False(t, publicKeyMatches(clientCert.Leaf.PublicKey, "not a key"))
}
