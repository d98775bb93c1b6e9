package utils

import (
	"net"
	"net/http"
	"time"
)

const UserAgent = "Cartelera/1.0 <github.com/jaison-mx/cartelera>"

type UARoundtripper struct {
	RT http.RoundTripper
}

func (uart *UARoundtripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", UserAgent)
	rt := uart.RT
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// NewHTTPClient returns the short-timeout client used for playlist
// fetches and probes. The timeout bounds the whole request, so it only
// suits small responses.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: &UARoundtripper{},
	}
}

// NewDownloadClient returns the client used for streaming asset bodies.
// The timeout bounds dialing and the wait for response headers only; a
// slow but alive transfer is allowed to run to completion.
func NewDownloadClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &UARoundtripper{RT: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			ResponseHeaderTimeout: timeout,
		}},
	}
}
