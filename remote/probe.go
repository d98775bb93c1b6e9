package remote

import (
	"fmt"
	"net/http"
)

// StatusError reports a non-success HTTP status from the playlist server.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote: %s returned status %d", e.URL, e.Status)
}

// Reachable performs a cheap probe against a well-known endpoint to
// decide between the online and offline refresh paths. Any response at
// all counts; we only care that packets make it out.
func Reachable(client *http.Client, probeURL string) bool {
	req, err := http.NewRequest(http.MethodHead, probeURL, nil)
	if err != nil {
		return false
	}
	res, err := client.Do(req)
	if err != nil {
		return false
	}
	res.Body.Close()
	return true
}
