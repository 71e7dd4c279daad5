package postgres

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"

	"arbScope/internal/model"
)

func TestOpportunityRows(t *testing.T) {
	opps := []model.Opportunity{
		{
			Kind:                model.KindThreeToken,
			StartToken:          "0x01",
			StartSymbol:         "AAA",
			InputAmount:         250,
			OutputAmount:        300,
			Profit:              50,
			ProfitPercent:       20,
			EffectiveMultiplier: 1.2,
			Legs: []model.Leg{
				{ChainID: 1, PoolAddress: "0xaa"},
				{ChainID: 1, PoolAddress: "0xbb"},
				{ChainID: 1, PoolAddress: "0xcc"},
			},
		},
		{Kind: model.KindTwoToken, Legs: []model.Leg{{ChainID: 56, PoolAddress: "0xdd"}}},
	}

	runID := uuid.MustParse("6f1c1b7e-9a44-4c55-9d2b-0d6a5c1f7e10")
	rows, err := opportunityRows(runID, opps)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	first := rows[0]
	if len(first) != 12 {
		t.Fatalf("expected 12 columns, got %d", len(first))
	}
	if first[0] != runID || first[1] != 1 || rows[1][1] != 2 {
		t.Fatalf("unexpected run id or rank: %v %v %v", first[0], first[1], rows[1][1])
	}
	if got := first[3]; got != "1:0xaa>1:0xbb>1:0xcc" {
		t.Fatalf("unexpected route %v", got)
	}

	var legs []model.Leg
	if err := json.Unmarshal(first[11].([]byte), &legs); err != nil {
		t.Fatalf("legs json: %v", err)
	}
	if len(legs) != 3 || legs[2].PoolAddress != "0xcc" {
		t.Fatalf("unexpected legs %+v", legs)
	}
}

func TestSchemaEmbedded(t *testing.T) {
	for _, table := range []string{"scan_runs", "opportunities"} {
		if !strings.Contains(schema, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Fatalf("schema missing %s", table)
		}
	}
}
