// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package testinfra

import (
	"fmt"
	"html"
	"strings"
)

// PlayerFixture is one <player> of a play.
type PlayerFixture struct {
	Username string
	Name     string
	Score    string
	Win      bool
}

// PlayFixture is one <play> element.
type PlayFixture struct {
	ID       int
	GameID   int
	GameName string
	Date     string
	Length   int
	Comments string
	Players  []PlayerFixture
}

// CollectionItemFixture is one collection <item>.
type CollectionItemFixture struct {
	GameID     int
	SubType    string
	Name       string
	NumPlays   int
	Own        bool
	Wishlist   bool
	WantToPlay bool
	WantToBuy  bool
	ForTrade   bool
	Preordered bool
	Rank       string
	Rating     float64
	MinPlayers int
	MaxPlayers int
}

// ThingFixture is one thing <item>.
type ThingFixture struct {
	ID         int
	Type       string
	Name       string
	Year       int
	MinPlayers int
	MaxPlayers int
	Rank       string
	Rating     float64
	Weight     float64
}

// ProcessingXML is the document BGG serves while a collection export is queued.
const ProcessingXML = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<message>
	Your request for this collection has been accepted and will be processed.  Please try again later for access.
</message>`

func esc(s string) string {
	return html.EscapeString(s)
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PlaysXML renders a plays document with the given total.
func PlaysXML(total int, plays ...PlayFixture) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	fmt.Fprintf(&b, `<plays username="fixture" userid="1" total="%d" page="1">`+"\n", total)
	for _, p := range plays {
		fmt.Fprintf(&b, `<play id="%d" date="%s" quantity="1" length="%d" incomplete="0" nowinstats="0" location="">`+"\n",
			p.ID, esc(p.Date), p.Length)
		fmt.Fprintf(&b, `<item name="%s" objecttype="thing" objectid="%d"><subtypes><subtype value="boardgame"/></subtypes></item>`+"\n",
			esc(p.GameName), p.GameID)
		if p.Comments != "" {
			fmt.Fprintf(&b, "<comments>%s</comments>\n", esc(p.Comments))
		}
		if len(p.Players) > 0 {
			b.WriteString("<players>\n")
			for _, pl := range p.Players {
				fmt.Fprintf(&b, `<player username="%s" userid="0" name="%s" startposition="" color="" score="%s" new="0" rating="0" win="%d"/>`+"\n",
					esc(pl.Username), esc(pl.Name), esc(pl.Score), bit(pl.Win))
			}
			b.WriteString("</players>\n")
		}
		b.WriteString("</play>\n")
	}
	b.WriteString("</plays>")
	return []byte(b.String())
}

// CollectionXML renders a collection document.
func CollectionXML(items ...CollectionItemFixture) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8" standalone="yes"?>` + "\n")
	fmt.Fprintf(&b, `<items totalitems="%d" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">`+"\n", len(items))
	for i, it := range items {
		subType := it.SubType
		if subType == "" {
			subType = "boardgame"
		}
		fmt.Fprintf(&b, `<item objecttype="thing" objectid="%d" subtype="%s" collid="%d">`+"\n", it.GameID, subType, 1000+i)
		fmt.Fprintf(&b, `<name sortindex="1">%s</name>`+"\n", esc(it.Name))
		fmt.Fprintf(&b, "<image>https://cf.geekdo-images.com/%d.jpg</image>\n", it.GameID)
		fmt.Fprintf(&b, "<thumbnail>https://cf.geekdo-images.com/%d_t.jpg</thumbnail>\n", it.GameID)
		fmt.Fprintf(&b, `<stats minplayers="%d" maxplayers="%d" playingtime="60" numowned="100">`+"\n", it.MinPlayers, it.MaxPlayers)
		fmt.Fprintf(&b, `<rating value="N/A"><usersrated value="10"/><average value="%g"/><bayesaverage value="0"/>`, it.Rating)
		if it.Rank != "" {
			fmt.Fprintf(&b, `<ranks><rank type="subtype" id="1" name="boardgame" friendlyname="Board Game Rank" value="%s" bayesaverage="0"/></ranks>`, esc(it.Rank))
		}
		b.WriteString("</rating></stats>\n")
		fmt.Fprintf(&b, `<status own="%d" prevowned="0" fortrade="%d" want="0" wanttoplay="%d" wanttobuy="%d" wishlist="%d" preordered="%d" lastmodified="2024-01-01 00:00:00"/>`+"\n",
			bit(it.Own), bit(it.ForTrade), bit(it.WantToPlay), bit(it.WantToBuy), bit(it.Wishlist), bit(it.Preordered))
		fmt.Fprintf(&b, "<numplays>%d</numplays>\n", it.NumPlays)
		b.WriteString("</item>\n")
	}
	b.WriteString("</items>")
	return []byte(b.String())
}

// ThingsXML renders a thing document.
func ThingsXML(things ...ThingFixture) []byte {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">` + "\n")
	for _, th := range things {
		typ := th.Type
		if typ == "" {
			typ = "boardgame"
		}
		name := th.Name
		if name == "" {
			name = fmt.Sprintf("Game %d", th.ID)
		}
		fmt.Fprintf(&b, `<item type="%s" id="%d">`+"\n", typ, th.ID)
		fmt.Fprintf(&b, "<thumbnail>https://cf.geekdo-images.com/%d_t.jpg</thumbnail>\n", th.ID)
		fmt.Fprintf(&b, "<image>https://cf.geekdo-images.com/%d.jpg</image>\n", th.ID)
		fmt.Fprintf(&b, `<name type="primary" sortindex="1" value="%s"/>`+"\n", esc(name))
		fmt.Fprintf(&b, `<name type="alternate" sortindex="1" value="%s (alt)"/>`+"\n", esc(name))
		fmt.Fprintf(&b, `<yearpublished value="%d"/><minplayers value="%d"/><maxplayers value="%d"/>`+"\n", th.Year, th.MinPlayers, th.MaxPlayers)
		b.WriteString(`<playingtime value="60"/><minplaytime value="30"/><maxplaytime value="60"/>` + "\n")
		fmt.Fprintf(&b, `<statistics page="1"><ratings><usersrated value="100"/><average value="%g"/><bayesaverage value="0"/>`, th.Rating)
		if th.Rank != "" {
			fmt.Fprintf(&b, `<ranks><rank type="subtype" id="1" name="boardgame" friendlyname="Board Game Rank" value="%s" bayesaverage="0"/></ranks>`, esc(th.Rank))
		}
		fmt.Fprintf(&b, `<stddev value="1.2"/><median value="0"/><owned value="500"/><averageweight value="%g"/></ratings></statistics>`+"\n", th.Weight)
		b.WriteString("</item>\n")
	}
	b.WriteString("</items>")
	return []byte(b.String())
}
