// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Package testinfra provides test infrastructure for exercising the BGG
// client and everything above it without network access.
//
// # Fake BGG
//
// FakeBGG is an httptest server that speaks the subset of the BGG site the
// client uses: the XML API 2 read endpoints, the JSON login and the
// geekplay.php form endpoint. It captures every request for verification.
//
//	func TestSync(t *testing.T) {
//	    fake := testinfra.NewFakeBGG(t)
//	    fake.SetToken("alice", "tok")
//	    fake.SetPlays("alice", testinfra.PlaysXML(3, testinfra.PlayFixture{ID: 1, GameID: 13, GameName: "Catan"}))
//	    fake.SetCollectionPending(2) // two HTTP 202 answers before the export is ready
//
//	    client := bgg.NewClient(&config.BGGConfig{BaseURL: fake.URL(), ...})
//	    // ...
//	}
//
// # Fixtures
//
// PlaysXML, CollectionXML and ThingsXML build documents in the shape BGG
// returns, so tests describe data instead of pasting XML.
package testinfra
