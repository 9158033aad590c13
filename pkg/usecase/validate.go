package usecase

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// IssueKind classifies a DB audit finding
type IssueKind string

const (
	IssueUnknownCategory IssueKind = "unknown_category"
	IssueResidualDrift   IssueKind = "residual_drift"
	IssueRowCount        IssueKind = "row_count"
)

// ValidationIssue represents a single inconsistency found during a DB audit
type ValidationIssue struct {
	Kind           IssueKind
	OrganizationID types.OrganizationID
	RiskID         int64
	PeriodID       model.PeriodID
	Message        string
	Expected       string
	Actual         string
}

// ValidationResult holds the results of DB validation
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasIssues returns true if there are any validation issues
func (r *ValidationResult) HasIssues() bool {
	return len(r.Issues) > 0
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issue ValidationIssue) {
	r.Issues = append(r.Issues, issue)
}

// ValidateDB audits every registered organization: stored residual fields
// must equal a fresh derivation from the risk's controls, categories must be
// configured, and each commit's row count must match its history entries.
// It does NOT modify any data.
func (uc *UseCases) ValidateDB(ctx context.Context) (*ValidationResult, error) {
	result := &ValidationResult{}

	for _, entry := range uc.registry.List() {
		orgID := entry.Organization.ID

		risks, err := uc.repo.Risk().List(ctx, orgID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list risks", goerr.V(OrgIDKey, orgID))
		}

		for _, risk := range risks {
			if err := entry.ValidateCategory(risk.Category); err != nil {
				result.AddIssue(ValidationIssue{
					Kind:           IssueUnknownCategory,
					OrganizationID: orgID,
					RiskID:         risk.ID,
					Message:        "risk has an unconfigured category",
					Expected:       "configured category ID",
					Actual:         risk.Category.String(),
				})
			}

			controls, err := uc.repo.Control().ListByRisk(ctx, orgID, risk.ID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to list controls",
					goerr.V(OrgIDKey, orgID), goerr.V(RiskIDKey, risk.ID))
			}

			expected := model.ComputeResidual(risk.InherentLikelihood, risk.InherentImpact, controls, risk.Derived.LastComputedAt)
			if !sameResidual(expected, risk.Derived) {
				result.AddIssue(ValidationIssue{
					Kind:           IssueResidualDrift,
					OrganizationID: orgID,
					RiskID:         risk.ID,
					Message:        "stored residual state differs from its controls",
					Expected:       formatResidual(expected),
					Actual:         formatResidual(risk.Derived),
				})
			}
		}

		commits, err := uc.repo.Period().ListCommits(ctx, orgID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list commits", goerr.V(OrgIDKey, orgID))
		}
		for _, commit := range commits {
			histories, err := uc.repo.Period().ListHistoryByPeriod(ctx, orgID, commit.Period.ID())
			if err != nil {
				return nil, goerr.Wrap(err, "failed to list period history",
					goerr.V(OrgIDKey, orgID), goerr.V(PeriodKey, commit.Period.ID()))
			}
			if len(histories) != commit.RowCount {
				result.AddIssue(ValidationIssue{
					Kind:           IssueRowCount,
					OrganizationID: orgID,
					PeriodID:       commit.Period.ID(),
					Message:        "commit row count differs from its history entries",
					Expected:       fmt.Sprint(commit.RowCount),
					Actual:         fmt.Sprint(len(histories)),
				})
			}
		}
	}

	return result, nil
}

// RepairResiduals recomputes every risk flagged with residual drift in result.
// Other kinds of issues are left for an operator; history is never rewritten.
func (uc *UseCases) RepairResiduals(ctx context.Context, result *ValidationResult) ([]*model.Risk, error) {
	var repaired []*model.Risk
	for _, issue := range result.Issues {
		if issue.Kind != IssueResidualDrift {
			continue
		}
		risk, err := uc.Residual.Recompute(ctx, issue.OrganizationID, issue.RiskID)
		if err != nil {
			return repaired, err
		}
		repaired = append(repaired, risk)
	}
	return repaired, nil
}

func sameResidual(a, b model.DerivedState) bool {
	return a.ResidualLikelihood == b.ResidualLikelihood &&
		a.ResidualImpact == b.ResidualImpact &&
		a.ResidualScore == b.ResidualScore
}

func formatResidual(d model.DerivedState) string {
	return fmt.Sprintf("L%d I%d score %d", d.ResidualLikelihood, d.ResidualImpact, d.ResidualScore)
}
