package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"github.com/secmon-lab/riskledger/pkg/repository/firestore"
	"github.com/secmon-lab/riskledger/pkg/repository/memory"
	"github.com/secmon-lab/riskledger/pkg/repository/postgres"
)

func newMemoryRepository(t *testing.T) interfaces.Repository {
	t.Helper()
	return memory.New()
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}

	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if databaseID == "" {
		t.Skip("TEST_FIRESTORE_DATABASE_ID not set")
	}

	ctx := context.Background()
	prefix := fmt.Sprintf("test_%d", time.Now().UnixNano())
	repo, err := firestore.New(ctx, projectID, databaseID, firestore.WithCollectionPrefix(prefix))
	if err != nil {
		t.Fatalf("failed to create firestore repository: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close firestore repository: %v", err)
		}
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	repo, err := postgres.New(ctx, dsn, postgres.WithConnectTimeout(10*time.Second))
	if err != nil {
		t.Fatalf("failed to create postgres repository: %v", err)
	}
	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate postgres schema: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("failed to close postgres repository: %v", err)
		}
	})
	return repo
}

// newOrgID returns an organization ID unique to the test run so suites can
// share a database without cleaning up
func newOrgID() types.OrganizationID {
	return types.OrganizationID(fmt.Sprintf("org-%d-%d", time.Now().UnixNano(), orgSeq.Add(1)))
}

var orgSeq atomic.Int64

func derive(risk *model.Risk, controls []*model.Control) (model.DerivedState, error) {
	return model.ComputeResidual(risk.InherentLikelihood, risk.InherentImpact, controls, time.Now().UTC().Truncate(time.Microsecond)), nil
}

func newRisk(orgID types.OrganizationID, code string) *model.Risk {
	return &model.Risk{
		OrganizationID:     orgID,
		Code:               code,
		Title:              "Unpatched VPN gateway",
		Description:        "Gateway runs a firmware version with a public exploit",
		Category:           types.CategoryID("ops"),
		Owner:              "alice",
		Status:             types.RiskStatusOpen,
		InherentLikelihood: 4,
		InherentImpact:     5,
	}
}

func newControl(orgID types.OrganizationID, riskID int64, code string, controlType types.ControlType, d, i, m, e types.DIMEScore) *model.Control {
	return &model.Control{
		OrganizationID: orgID,
		RiskID:         riskID,
		Code:           code,
		Name:           "Control " + code,
		Type:           controlType,
		Design:         d,
		Implementation: i,
		Monitoring:     m,
		Evaluation:     e,
	}
}
