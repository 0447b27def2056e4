package httpserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CertReloader watches a certificate/key pair on disk and serves the
// freshest version, so certificate renewal does not require a restart.
type CertReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	logger   *slog.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

func NewCertReloader(certFile, keyFile string, interval time.Duration, logger *slog.Logger) *CertReloader {
	return &CertReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		logger:   logger,
	}
}

// Start loads the initial certificate and begins polling for changes in
// the background until ctx is cancelled.
func (r *CertReloader) Start(ctx context.Context) error {
	if err := r.reload(); err != nil {
		return fmt.Errorf("loading certificate: %w", err)
	}

	go r.reloadLoop(ctx)

	return nil
}

// TLSConfig returns a server configuration that always serves the most
// recently loaded certificate.
func (r *CertReloader) TLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion:     tls.VersionTLS12,
		GetCertificate: r.GetCertificate,
	}
}

// GetCertificate hands the current certificate to the TLS handshake.
func (r *CertReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.cert == nil {
		return nil, fmt.Errorf("no certificate loaded")
	}

	return r.cert, nil
}

func (r *CertReloader) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.needsReload() {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Error("failed to reload certificate",
					slog.String("cert_file", r.certFile),
					slog.Any("err", err))
				continue
			}
			r.logger.Info("certificate reloaded",
				slog.String("cert_file", r.certFile))

		case <-ctx.Done():
			return
		}
	}
}

func (r *CertReloader) needsReload() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}

	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return certInfo.ModTime().After(r.certTime) || keyInfo.ModTime().After(r.keyTime)
}

func (r *CertReloader) reload() error {
	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}

	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()

	return nil
}
