package playlist

import (
	"encoding/json"
	"strconv"
)

const DefaultDurationSeconds = 5

// Rule is one remotely-authored playlist entry. The wire format is the
// server's Spanish field naming and everything arrives string-encoded.
type Rule struct {
	Src       string `json:"src"`
	Escalado  string `json:"escalado"`
	X         string `json:"x"`
	Y         string `json:"y"`
	StartDate string `json:"fecha_inicio"`
	EndDate   string `json:"fecha_fin"`
	StartTime string `json:"hora_inicio"`
	EndTime   string `json:"hora_fin"`
	Duracion  string `json:"duracion"`
	RuleID    string `json:"rule_id"`
}

// Document is the remote playlist payload.
type Document struct {
	Data []Rule `json:"data"`
}

func ParseDocument(body []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(body, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// DurationSeconds reports how long an image rule should stay on screen.
func (r Rule) DurationSeconds() int {
	d, err := strconv.Atoi(r.Duracion)
	if err != nil || d <= 0 {
		return DefaultDurationSeconds
	}
	return d
}

// Offsets parses the string-encoded x/y placement offsets. Anything
// unparsable counts as zero.
func (r Rule) Offsets() (int, int) {
	x, _ := strconv.Atoi(r.X)
	y, _ := strconv.Atoi(r.Y)
	return x, y
}
