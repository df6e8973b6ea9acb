package httpclient

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"syscall"

	"github.com/gaborage/restbricks/rest"
)

// classifySendError maps a failed http.Client.Do into the rest error
// taxonomy. Timeouts and connection setup failures are retryable; TLS and
// certificate failures are not, because repeating them cannot succeed.
func classifySendError(err error) *rest.Error {
	var (
		dnsErr   *net.DNSError
		opErr    *net.OpError
		certErr  *tls.CertificateVerificationError
		unknown  x509.UnknownAuthorityError
		hostname x509.HostnameError
		record   tls.RecordHeaderError
	)

	switch {
	case errors.Is(err, context.Canceled):
		return rest.NewTransportError("request canceled", 0, false).WithCause(err)
	case isTimeout(err):
		return rest.NewTimeoutError("request timed out", 0, true).WithCause(err)
	case errors.As(err, &dnsErr):
		return rest.NewConnectError("dns lookup failed for "+dnsErr.Name, 0, true).WithCause(err)
	case errors.As(err, &certErr), errors.As(err, &unknown), errors.As(err, &hostname), errors.As(err, &record):
		return rest.NewConnectError("tls handshake failed", 0, false).WithCause(err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return rest.NewConnectError("connection refused", 0, true).WithCause(err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return rest.NewConnectError("dial failed", 0, true).WithCause(err)
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return rest.NewTransportError("connection closed by peer", 0, true).WithCause(err)
	default:
		return rest.NewTransportError("request execution failed", 0, true).WithCause(err)
	}
}

// classifyReadError maps a failure while reading a response body. The status
// line already arrived, so the error keeps it.
func classifyReadError(status int, err error) *rest.Error {
	switch {
	case errors.Is(err, context.Canceled):
		return rest.NewTransportError("response read canceled", status, false).WithCause(err)
	case isTimeout(err):
		return rest.NewTimeoutError("timed out reading response body", status, true).WithCause(err)
	default:
		return rest.NewTransportError("failed to read response body", status, true).WithCause(err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
