package cli

import (
	"testing"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/gt"
)

func TestGetIndexConfig(t *testing.T) {
	t.Run("valid for fireconf", func(t *testing.T) {
		gt.NoError(t, getIndexConfig("").Validate())
	})

	t.Run("collection names follow prefix", func(t *testing.T) {
		gt.Value(t, collectionNames(getIndexConfig(""))).Equal([]string{"controls", "risks", "risk_histories"})
		gt.Value(t, collectionNames(getIndexConfig("stg"))).Equal([]string{"stg_controls", "stg_risks", "stg_risk_histories"})
	})
}

func TestMigrationSteps(t *testing.T) {
	t.Run("nil diff has no steps", func(t *testing.T) {
		gt.A(t, migrationSteps(nil)).Length(0)
	})

	t.Run("adds and deletes are listed per collection", func(t *testing.T) {
		diff := &fireconf.DiffResult{
			Collections: []fireconf.CollectionDiff{
				{
					Name:   "risks",
					Action: fireconf.ActionModify,
					IndexesToAdd: []fireconf.Index{
						{Fields: []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "code", Order: fireconf.OrderAscending},
						}},
					},
					IndexesToDelete: []fireconf.Index{
						{Fields: []fireconf.IndexField{
							{Path: "code", Order: fireconf.OrderDescending},
						}},
					},
				},
				{
					Name:      "risk_histories",
					TTL:       &fireconf.TTL{Field: "expires_at"},
					TTLAction: fireconf.ActionAdd,
				},
			},
		}

		steps := migrationSteps(diff)
		gt.A(t, steps).Length(3)
		gt.Value(t, steps[0]).Equal(migrationStep{
			Collection: "risks",
			Operation:  "create index",
			Fields:     []string{"organization_id ASCENDING", "code ASCENDING"},
		})
		gt.Value(t, steps[1].Operation).Equal("delete index")
		gt.Value(t, steps[1].Fields).Equal([]string{"code DESCENDING"})
		gt.Value(t, steps[2]).Equal(migrationStep{
			Collection: "risk_histories",
			Operation:  "ttl add",
			Fields:     []string{"expires_at"},
		})
	})
}
