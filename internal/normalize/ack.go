// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/bggsync/internal/models"
)

// flexInt accepts both 123 and "123".
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type playAckJSON struct {
	PlayID   flexInt `json:"playid"`
	NumPlays flexInt `json:"numplays"`
	Message  string  `json:"message"`
}

// ParsePlayAck decodes the geekplay.php save response. BGG answers with a
// small JSON object; an empty or HTML body is accepted as a bare success.
func ParsePlayAck(raw []byte) (models.PlayAck, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 || body[0] != '{' {
		return models.PlayAck{}, nil
	}

	var doc playAckJSON
	if err := json.Unmarshal(body, &doc); err != nil {
		return models.PlayAck{}, &ParseError{Endpoint: EndpointPlayAck, Err: err}
	}
	return models.PlayAck{
		PlayID:   int(doc.PlayID),
		NumPlays: int(doc.NumPlays),
		Message:  doc.Message,
	}, nil
}
