// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"github.com/tomtom215/bggsync/internal/models"
)

type playsXML struct {
	Total string    `xml:"total,attr"`
	Plays []playXML `xml:"play"`
}

type playXML struct {
	ID         string `xml:"id,attr"`
	Date       string `xml:"date,attr"`
	Quantity   string `xml:"quantity,attr"`
	Length     string `xml:"length,attr"`
	Incomplete string `xml:"incomplete,attr"`
	NoWinStats string `xml:"nowinstats,attr"`
	Location   string `xml:"location,attr"`
	Item       struct {
		Name     string `xml:"name,attr"`
		ObjectID string `xml:"objectid,attr"`
	} `xml:"item"`
	Comments string      `xml:"comments"`
	Players  []playerXML `xml:"players>player"`
}

type playerXML struct {
	Username      string `xml:"username,attr"`
	Name          string `xml:"name,attr"`
	StartPosition string `xml:"startposition,attr"`
	Color         string `xml:"color,attr"`
	Score         string `xml:"score,attr"`
	New           string `xml:"new,attr"`
	Rating        string `xml:"rating,attr"`
	Win           string `xml:"win,attr"`
}

// ParsePlays decodes a plays?username=U response. Plays are returned newest
// first; Total is the user's overall play count, which can exceed len(Plays)
// because BGG pages the list.
func ParsePlays(raw []byte) (models.PlaySnapshot, error) {
	var doc playsXML
	if err := decode(EndpointPlays, raw, &doc); err != nil {
		return models.PlaySnapshot{}, err
	}

	snap := models.PlaySnapshot{
		Total: atoi(doc.Total),
		Plays: make([]models.Play, 0, len(doc.Plays)),
	}
	for _, p := range doc.Plays {
		snap.Plays = append(snap.Plays, normalizePlay(p))
	}
	models.SortPlays(snap.Plays)
	return snap, nil
}

func normalizePlay(p playXML) models.Play {
	play := models.Play{
		ID:         atoi(p.ID),
		GameID:     atoi(p.Item.ObjectID),
		GameName:   p.Item.Name,
		Date:       p.Date,
		Length:     atoi(p.Length),
		Quantity:   atoi(p.Quantity),
		Location:   p.Location,
		Incomplete: flag(p.Incomplete),
		NoWinStats: flag(p.NoWinStats),
		Comment:    CleanText(p.Comments),
		Expansions: ExtractExpansions(p.Comments),
		Winners:    []string{},
		Players:    []string{},
	}
	if play.GameName == "" {
		play.GameName = "Unknown"
	}
	if play.Expansions == nil {
		play.Expansions = []string{}
	}

	for _, pl := range p.Players {
		r := models.PlayerResult{
			Name:     pl.Name,
			Username: pl.Username,
			Win:      flag(pl.Win),
			Score:    pl.Score,
			Position: pl.StartPosition,
			Color:    pl.Color,
			Rating:   pl.Rating,
			New:      flag(pl.New),
		}
		play.Results = append(play.Results, r)
		if r.Win && r.DisplayName() != "" {
			play.Winners = append(play.Winners, r.DisplayName())
		}
		if id := r.Identity(); id != "" {
			play.Players = append(play.Players, id)
		}
	}
	return play
}

// ParsePlayCount decodes the total attribute of a plays response. It is used
// with the per-game form plays?username=U&id=N&type=thing.
func ParsePlayCount(raw []byte) (int, error) {
	var doc playsXML
	if err := decode(EndpointPlays, raw, &doc); err != nil {
		return 0, err
	}
	return atoi(doc.Total), nil
}
