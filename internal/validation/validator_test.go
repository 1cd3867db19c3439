// BGG Sync - BoardGameGeek Account Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bggsync

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/bggsync/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

func TestValidateStruct_PlayRecordRequest(t *testing.T) {
	tests := []struct {
		name      string
		req       models.PlayRecordRequest
		wantField string
		wantTag   string
	}{
		{
			name: "valid minimal",
			req:  models.PlayRecordRequest{Username: "alice", GameID: 13},
		},
		{
			name: "valid with players",
			req: models.PlayRecordRequest{
				Username: "alice",
				GameID:   13,
				Date:     "2024-05-01",
				Length:   90,
				Players:  []models.PlayerEntry{{Name: "Ann", Win: true}, {Username: "bob"}},
			},
		},
		{
			name:      "missing game id",
			req:       models.PlayRecordRequest{Username: "alice"},
			wantField: "game_id",
			wantTag:   "required",
		},
		{
			name:      "negative game id",
			req:       models.PlayRecordRequest{Username: "alice", GameID: -4},
			wantField: "game_id",
			wantTag:   "gt",
		},
		{
			name:      "bad date",
			req:       models.PlayRecordRequest{Username: "alice", GameID: 1, Date: "05/01/2024"},
			wantField: "date",
			wantTag:   "datetime",
		},
		{
			name:      "negative length",
			req:       models.PlayRecordRequest{Username: "alice", GameID: 1, Length: -1},
			wantField: "length",
			wantTag:   "gte",
		},
		{
			name: "player without name or username",
			req: models.PlayRecordRequest{
				Username: "alice",
				GameID:   1,
				Players:  []models.PlayerEntry{{Name: "Ann"}, {Score: "12"}},
			},
			wantField: "players[1].name",
			wantTag:   "required_without",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a validation error")
			}
			found := false
			for _, fe := range err.Errors() {
				if fe.Field() == tt.wantField && fe.Tag() == tt.wantTag {
					found = true
				}
			}
			if !found {
				t.Errorf("expected %s/%s in %v", tt.wantField, tt.wantTag, err)
			}
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	err := ValidateStruct(&models.PlayRecordRequest{Username: "alice", GameID: 1, Date: "tomorrow"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "date must be a date in YYYY-MM-DD format") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	err = ValidateStruct(&models.PlayRecordRequest{Username: "alice", GameID: 1, Players: []models.PlayerEntry{{}}})
	if err == nil || !strings.Contains(err.Error(), "players[0].name is required when username is not set") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestBGGUsernameTag(t *testing.T) {
	type accountInput struct {
		Username string `json:"username" validate:"required,bgg_username"`
	}

	for _, ok := range []string{"alice", "Board Gamer", "a.b-c_d"} {
		if err := ValidateStruct(&accountInput{Username: ok}); err != nil {
			t.Errorf("%q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "semi;colon", strings.Repeat("x", 65)} {
		if err := ValidateStruct(&accountInput{Username: bad}); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestToAPIError(t *testing.T) {
	single := NewRequestValidationError("game_id", "known", "game_id 99 is not a known BGG game")
	apiErr := single.ToAPIError()
	if apiErr.Code != ErrorCode {
		t.Errorf("code = %s", apiErr.Code)
	}
	if apiErr.Details["field"] != "game_id" {
		t.Errorf("details = %v", apiErr.Details)
	}

	multi := ValidateStruct(&models.PlayRecordRequest{})
	if multi == nil {
		t.Fatal("expected errors for an empty request")
	}
	apiErr = multi.ToAPIError()
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) < 2 {
		t.Errorf("expected field list, got %v", apiErr.Details)
	}

	empty := &RequestValidationError{}
	if empty.ToAPIError().Message != "Validation failed" || empty.Error() != "validation failed" {
		t.Error("empty validation error has unexpected text")
	}
}
