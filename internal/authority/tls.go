package authority

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pkcs12"

	"lineacaptura/internal/platform/config"
)

// Client certificate container formats.
const (
	CertTypePEM = "PEM"
	CertTypeP12 = "P12"
)

func newTLSConfig(cfg config.AuthorityConfig) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !cfg.TLSVerify, //nolint:gosec // operator opt-out for test environments
	}

	if cfg.CACertPath != "" {
		pool, err := loadCAPool(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}

	if cfg.ClientCertPath != "" {
		cert, err := loadClientCertificate(cfg)
		if err != nil {
			return nil, err
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	return tlsCfg, nil
}

func loadCAPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("CA bundle %s contains no certificates", path)
	}
	return pool, nil
}

func loadClientCertificate(cfg config.AuthorityConfig) (tls.Certificate, error) {
	data, err := os.ReadFile(cfg.ClientCertPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read client certificate: %w", err)
	}

	if cfg.ClientCertType == CertTypeP12 {
		return p12Certificate(data, cfg.ClientCertPassword)
	}

	keyData := data
	if cfg.ClientKeyPath != "" {
		keyData, err = os.ReadFile(cfg.ClientKeyPath)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("read client key: %w", err)
		}
	}
	password := cfg.ClientKeyPassword
	if password == "" {
		password = cfg.ClientCertPassword
	}
	keyPEM, err := decryptKey(keyData, password)
	if err != nil {
		return tls.Certificate{}, err
	}
	cert, err := tls.X509KeyPair(data, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse client key pair: %w", err)
	}
	return cert, nil
}

// decryptKey returns the first private key block of data in PEM form,
// decrypting legacy encrypted PEM blocks with password.
func decryptKey(data []byte, password string) ([]byte, error) {
	for rest := data; len(rest) > 0; {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if !strings.HasSuffix(block.Type, "PRIVATE KEY") {
			continue
		}
		if block.Type == "ENCRYPTED PRIVATE KEY" {
			return nil, errors.New("PKCS#8 encrypted keys are not supported; re-encode the key as legacy encrypted PEM or a P12 bundle")
		}
		//nolint:staticcheck // legacy encrypted PEM keys are still issued by the authority
		if !x509.IsEncryptedPEMBlock(block) {
			return pem.EncodeToMemory(block), nil
		}
		if password == "" {
			return nil, errors.New("client key is encrypted but no password is configured")
		}
		//nolint:staticcheck // see above
		der, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("decrypt client key: %w", err)
		}
		return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
	}
	return nil, errors.New("no private key found in client key file")
}

func p12Certificate(data []byte, password string) (tls.Certificate, error) {
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decode P12 bundle: %w", err)
	}
	var certPEM, keyPEM []byte
	for _, b := range blocks {
		switch b.Type {
		case "CERTIFICATE":
			certPEM = append(certPEM, pem.EncodeToMemory(b)...)
		case "PRIVATE KEY":
			keyPEM = pem.EncodeToMemory(b)
		}
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse P12 key pair: %w", err)
	}
	return cert, nil
}
