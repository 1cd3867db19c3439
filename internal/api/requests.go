// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

// Request bodies with go-playground/validator tags. Handlers decode into
// these structs and validate them before touching any collaborator.
package api

// TrackGameRequest is the body of POST /api/v1/actions/track_game.
// Username may be omitted when exactly one account is tracked; with several
// accounts the first in username order is used.
type TrackGameRequest struct {
	BGGID       int    `json:"bgg_id" validate:"required,gt=0"`
	Username    string `json:"username,omitempty" validate:"omitempty,max=64"`
	NFCTag      string `json:"nfc_tag,omitempty" validate:"omitempty,max=128"`
	Music       string `json:"music,omitempty" validate:"omitempty,max=2048"`
	CustomImage string `json:"custom_image,omitempty" validate:"omitempty,url,max=2048"`
}

// TrackGameResponse reports the outcome of track_game.
type TrackGameResponse struct {
	Username string `json:"username"`
	GameID   int    `json:"game_id"`
	Created  bool   `json:"created"`
}

// CreateAccountRequest is the body of POST /api/v1/accounts.
type CreateAccountRequest struct {
	Username         string `json:"username" validate:"required,min=1,max=64"`
	Token            string `json:"token" validate:"required,min=1"`
	Password         string `json:"password,omitempty"`
	TrackCollection  *bool  `json:"track_collection,omitempty"`
	LogPlays         bool   `json:"log_plays,omitempty"`
	ImportCollection bool   `json:"import_collection,omitempty"`
	EnableShelfTodo  *bool  `json:"enable_shelf_todo,omitempty"`
	Games            []int  `json:"games,omitempty" validate:"omitempty,max=500,dive,gt=0"`
}

// TodoStatusRequest is the body of POST /api/v1/entities/todo/{uid}/status.
type TodoStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=needs_action completed"`
}

// AccountView is an account as the API shows it. Credentials are masked.
type AccountView struct {
	Username         string `json:"username"`
	Token            string `json:"token,omitempty"`
	HasPassword      bool   `json:"has_password"`
	TrackCollection  bool   `json:"track_collection"`
	LogPlays         bool   `json:"log_plays"`
	ImportCollection bool   `json:"import_collection"`
	EnableShelfTodo  bool   `json:"enable_shelf_todo"`
	Games            []int  `json:"games"`
	State            string `json:"state,omitempty"`
}
