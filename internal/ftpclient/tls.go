package ftpclient

import (
	"crypto/rsa"
	"crypto/tls"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// TLSMode selects how the control connection is secured.
type TLSMode string

const (
	TLSNone     TLSMode = "none"
	TLSExplicit TLSMode = "explicit" // AUTH TLS on the plain port
	TLSImplicit TLSMode = "implicit" // TLS from the first byte, usually port 990
)

// ParseTLSMode accepts none, explicit or implicit. An empty string is none.
func ParseTLSMode(s string) (TLSMode, error) {
	switch TLSMode(s) {
	case "", TLSNone:
		return TLSNone, nil
	case TLSExplicit, TLSImplicit:
		return TLSMode(s), nil
	default:
		return "", fmt.Errorf("unknown TLS mode %q (want none, explicit or implicit)", s)
	}
}

// sessionCache is shared by every connection of the process so that data
// connections can resume the control connection's TLS session. Many FTPS
// servers refuse data transfers otherwise (425).
var sessionCache = tls.NewLRUClientSessionCache(64)

func (c *Client) tlsConfig(host string) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         host,
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: c.opts.InsecureSkipVerify,
		ClientSessionCache: c.opts.SessionCache,
	}
	if cfg.ClientSessionCache == nil {
		cfg.ClientSessionCache = sessionCache
	}

	if c.opts.CertPath != "" {
		cert, err := loadTLSCertificate(c.opts.CertPath, c.opts.CertPassword)
		if err != nil {
			return nil, fmt.Errorf("loading TLS certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// loadTLSCertificate decodes an RSA client certificate from a PFX file.
func loadTLSCertificate(certPath, pfxPassword string) (tls.Certificate, error) {
	if pfxPassword == "" {
		return tls.Certificate{}, errors.New("PFX password is required")
	}

	pfxData, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading PFX file %s: %w", certPath, err)
	}

	privateKey, cert, err := pkcs12.Decode(pfxData, pfxPassword)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decoding PFX file %s: %w", certPath, err)
	}

	rsaKey, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("private key in %s is not RSA", certPath)
	}

	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  rsaKey,
		Leaf:        cert,
	}, nil
}
