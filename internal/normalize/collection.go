// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package normalize

import (
	"strings"

	"github.com/tomtom215/bggsync/internal/models"
)

type collectionXML struct {
	Items []collectionItemXML `xml:"item"`
}

type collectionItemXML struct {
	ObjectID      string `xml:"objectid,attr"`
	SubType       string `xml:"subtype,attr"`
	CollID        string `xml:"collid,attr"`
	Name          string `xml:"name"`
	Image         string `xml:"image"`
	Thumbnail     string `xml:"thumbnail"`
	YearPublished string `xml:"yearpublished"`
	NumPlays      string `xml:"numplays"`
	Status        struct {
		Own        string `xml:"own,attr"`
		Wishlist   string `xml:"wishlist,attr"`
		WantToPlay string `xml:"wanttoplay,attr"`
		WantToBuy  string `xml:"wanttobuy,attr"`
		ForTrade   string `xml:"fortrade,attr"`
		Preordered string `xml:"preordered,attr"`
	} `xml:"status"`
	Stats *collectionStatsXML `xml:"stats"`
}

type collectionStatsXML struct {
	MinPlayers  string     `xml:"minplayers,attr"`
	MaxPlayers  string     `xml:"maxplayers,attr"`
	PlayingTime string     `xml:"playingtime,attr"`
	MinPlaytime string     `xml:"minplaytime,attr"`
	MaxPlaytime string     `xml:"maxplaytime,attr"`
	NumOwned    string     `xml:"numowned,attr"`
	Rating      *ratingXML `xml:"rating"`
}

// ratingXML is shared by collection <stats><rating> and thing
// <statistics><ratings>.
type ratingXML struct {
	UsersRated    valueAttr `xml:"usersrated"`
	Average       valueAttr `xml:"average"`
	BayesAverage  valueAttr `xml:"bayesaverage"`
	StdDev        valueAttr `xml:"stddev"`
	Median        valueAttr `xml:"median"`
	Owned         valueAttr `xml:"owned"`
	AverageWeight valueAttr `xml:"averageweight"`
	Ranks         []struct {
		Name  string `xml:"name,attr"`
		Value string `xml:"value,attr"`
	} `xml:"ranks>rank"`
}

// boardGameRank returns the overall "boardgame" rank or models.NotRanked.
func (r *ratingXML) boardGameRank() string {
	if r == nil {
		return models.NotRanked
	}
	for _, rank := range r.Ranks {
		if rank.Name == "boardgame" && rank.Value != "" {
			return rank.Value
		}
	}
	return models.NotRanked
}

func (r *ratingXML) apply(s *models.GameStats) {
	s.Rank = r.boardGameRank()
	if r == nil {
		return
	}
	s.Rating = atof(r.Average.Value)
	s.BayesRating = atof(r.BayesAverage.Value)
	s.Weight = atof(r.AverageWeight.Value)
	s.UsersRated = atoi(r.UsersRated.Value)
	s.StdDev = atof(r.StdDev.Value)
	s.Median = atof(r.Median.Value)
	if owned := atoi(r.Owned.Value); owned > 0 {
		s.OwnedBy = owned
	}
}

// ParseCollection decodes a collection?username=U&subtype=S&stats=1 response.
// A <message> document returns ErrProcessingPending. Items without a valid
// object ID are skipped.
func ParseCollection(raw []byte) ([]models.CollectionEntry, error) {
	var doc collectionXML
	if err := decode(EndpointCollection, raw, &doc); err != nil {
		return nil, err
	}

	entries := make([]models.CollectionEntry, 0, len(doc.Items))
	for _, it := range doc.Items {
		id := atoi(it.ObjectID)
		if id <= 0 {
			continue
		}
		e := models.CollectionEntry{
			GameID:    id,
			SubType:   it.SubType,
			CollID:    atoi(it.CollID),
			Name:      strings.TrimSpace(it.Name),
			Image:     strings.TrimSpace(it.Image),
			Thumbnail: strings.TrimSpace(it.Thumbnail),
			Year:      strings.TrimSpace(it.YearPublished),
			NumPlays:  atoi(it.NumPlays),
			Status: models.CollectionStatus{
				Own:        flag(it.Status.Own),
				Wishlist:   flag(it.Status.Wishlist),
				WantToPlay: flag(it.Status.WantToPlay),
				WantToBuy:  flag(it.Status.WantToBuy),
				ForTrade:   flag(it.Status.ForTrade),
				Preordered: flag(it.Status.Preordered),
			},
			Stats: models.GameStats{Rank: models.NotRanked},
		}
		if e.SubType == "" {
			e.SubType = models.SubTypeBoardGame
		}
		if st := it.Stats; st != nil {
			e.Stats.MinPlayers = atoi(st.MinPlayers)
			e.Stats.MaxPlayers = atoi(st.MaxPlayers)
			e.Stats.PlayingTime = atoi(st.PlayingTime)
			e.Stats.MinPlaytime = atoi(st.MinPlaytime)
			e.Stats.MaxPlaytime = atoi(st.MaxPlaytime)
			e.Stats.OwnedBy = atoi(st.NumOwned)
			st.Rating.apply(&e.Stats)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
