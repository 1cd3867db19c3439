// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"strings"

	"github.com/tomtom215/bggsync/internal/models"
)

type thingsXML struct {
	Items []thingXML `xml:"item"`
}

type thingXML struct {
	ID        string `xml:"id,attr"`
	Type      string `xml:"type,attr"`
	Thumbnail string `xml:"thumbnail"`
	Image     string `xml:"image"`
	Names     []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"name"`
	YearPublished valueAttr  `xml:"yearpublished"`
	MinPlayers    valueAttr  `xml:"minplayers"`
	MaxPlayers    valueAttr  `xml:"maxplayers"`
	PlayingTime   valueAttr  `xml:"playingtime"`
	MinPlaytime   valueAttr  `xml:"minplaytime"`
	MaxPlaytime   valueAttr  `xml:"maxplaytime"`
	Ratings       *ratingXML `xml:"statistics>ratings"`
}

func (t thingXML) primaryName() string {
	for _, n := range t.Names {
		if n.Type == "primary" {
			return n.Value
		}
	}
	return ""
}

// ParseThings decodes one or more thing?id=...&stats=1 batch responses and
// merges them by game ID. A later batch wins for an ID that appears twice.
// The first malformed batch aborts the whole parse.
func ParseThings(raw ...[]byte) (map[int]models.GameMetadata, error) {
	out := make(map[int]models.GameMetadata)
	for _, batch := range raw {
		var doc thingsXML
		if err := decode(EndpointThing, batch, &doc); err != nil {
			return nil, err
		}
		for _, it := range doc.Items {
			id := atoi(it.ID)
			if id <= 0 {
				continue
			}
			m := models.GameMetadata{
				ID:        id,
				Name:      it.primaryName(),
				SubType:   it.Type,
				Year:      it.YearPublished.Value,
				Image:     strings.TrimSpace(it.Image),
				Thumbnail: strings.TrimSpace(it.Thumbnail),
			}
			m.MinPlayers = atoi(it.MinPlayers.Value)
			m.MaxPlayers = atoi(it.MaxPlayers.Value)
			m.PlayingTime = atoi(it.PlayingTime.Value)
			m.MinPlaytime = atoi(it.MinPlaytime.Value)
			m.MaxPlaytime = atoi(it.MaxPlaytime.Value)
			it.Ratings.apply(&m.GameStats)
			out[id] = m
		}
	}
	return out, nil
}
