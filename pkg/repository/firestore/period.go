package firestore

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type activePeriodDocument struct {
	OrganizationID string    `firestore:"organization_id"`
	PeriodID       string    `firestore:"period_id"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

type commitDocument struct {
	ID             string    `firestore:"id"`
	OrganizationID string    `firestore:"organization_id"`
	PeriodID       string    `firestore:"period_id"`
	CommittedBy    string    `firestore:"committed_by"`
	CommittedAt    time.Time `firestore:"committed_at"`
	Note           string    `firestore:"note"`
	RowCount       int       `firestore:"row_count"`
}

type historyDocument struct {
	RiskID             int64     `firestore:"risk_id"`
	OrganizationID     string    `firestore:"organization_id"`
	PeriodID           string    `firestore:"period_id"`
	CommitID           string    `firestore:"commit_id"`
	Code               string    `firestore:"code"`
	Title              string    `firestore:"title"`
	Category           string    `firestore:"category"`
	Owner              string    `firestore:"owner"`
	Status             string    `firestore:"status"`
	InherentLikelihood int       `firestore:"inherent_likelihood"`
	InherentImpact     int       `firestore:"inherent_impact"`
	InherentScore      int       `firestore:"inherent_score"`
	ResidualLikelihood int       `firestore:"residual_likelihood"`
	ResidualImpact     int       `firestore:"residual_impact"`
	ResidualScore      int       `firestore:"residual_score"`
	ResidualComputedAt time.Time `firestore:"residual_computed_at"`
	SnapshotAt         time.Time `firestore:"snapshot_at"`
}

func newHistoryDocument(h *model.RiskHistory) *historyDocument {
	return &historyDocument{
		RiskID:             h.RiskID,
		OrganizationID:     h.OrganizationID.String(),
		PeriodID:           h.Period.ID().String(),
		CommitID:           h.CommitID,
		Code:               h.Code,
		Title:              h.Title,
		Category:           h.Category.String(),
		Owner:              h.Owner,
		Status:             h.Status.String(),
		InherentLikelihood: h.InherentLikelihood.Int(),
		InherentImpact:     h.InherentImpact.Int(),
		InherentScore:      h.InherentScore,
		ResidualLikelihood: h.ResidualLikelihood.Int(),
		ResidualImpact:     h.ResidualImpact.Int(),
		ResidualScore:      h.ResidualScore,
		ResidualComputedAt: h.ResidualComputedAt,
		SnapshotAt:         h.SnapshotAt,
	}
}

func (d *historyDocument) toModel() (*model.RiskHistory, error) {
	period, err := model.ParsePeriod(model.PeriodID(d.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.RiskHistory{
		RiskID:             d.RiskID,
		OrganizationID:     types.OrganizationID(d.OrganizationID),
		Period:             period,
		CommitID:           d.CommitID,
		Code:               d.Code,
		Title:              d.Title,
		Category:           types.CategoryID(d.Category),
		Owner:              d.Owner,
		Status:             types.RiskStatus(d.Status),
		InherentLikelihood: types.Likelihood(d.InherentLikelihood),
		InherentImpact:     types.Impact(d.InherentImpact),
		InherentScore:      d.InherentScore,
		ResidualLikelihood: types.Likelihood(d.ResidualLikelihood),
		ResidualImpact:     types.Impact(d.ResidualImpact),
		ResidualScore:      d.ResidualScore,
		ResidualComputedAt: d.ResidualComputedAt,
		SnapshotAt:         d.SnapshotAt,
	}, nil
}

func (d *commitDocument) toModel() (*model.PeriodCommit, error) {
	period, err := model.ParsePeriod(model.PeriodID(d.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.PeriodCommit{
		ID:             d.ID,
		OrganizationID: types.OrganizationID(d.OrganizationID),
		Period:         period,
		CommittedBy:    d.CommittedBy,
		CommittedAt:    d.CommittedAt,
		Note:           d.Note,
		RowCount:       d.RowCount,
	}, nil
}

func (d *activePeriodDocument) toModel() (*model.ActivePeriod, error) {
	period, err := model.ParsePeriod(model.PeriodID(d.PeriodID))
	if err != nil {
		return nil, err
	}
	return &model.ActivePeriod{
		OrganizationID: types.OrganizationID(d.OrganizationID),
		Period:         period,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

type periodRepository struct {
	client      *firestore.Client
	collections collections
}

func (r *periodRepository) activeRef(orgID types.OrganizationID) *firestore.DocumentRef {
	return r.client.Collection(r.collections.activePeriods()).Doc(orgID.String())
}

func (r *periodRepository) commitRef(orgID types.OrganizationID, periodID model.PeriodID) *firestore.DocumentRef {
	return r.client.Collection(r.collections.commits()).Doc(joinKey(orgID.String(), periodID.String()))
}

func (r *periodRepository) historyRef(riskID int64, periodID model.PeriodID) *firestore.DocumentRef {
	return r.client.Collection(r.collections.histories()).Doc(joinKey(idDoc(riskID), periodID.String()))
}

func decodeActive(doc *firestore.DocumentSnapshot) (*model.ActivePeriod, error) {
	var activeDoc activePeriodDocument
	if err := doc.DataTo(&activeDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal active period")
	}
	return activeDoc.toModel()
}

func (r *periodRepository) GetActive(ctx context.Context, orgID types.OrganizationID) (*model.ActivePeriod, error) {
	doc, err := r.activeRef(orgID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
		}
		return nil, goerr.Wrap(err, "failed to get active period", goerr.V("org_id", orgID))
	}
	return decodeActive(doc)
}

func (r *periodRepository) EnsureActive(ctx context.Context, orgID types.OrganizationID, initial model.Period) (*model.ActivePeriod, error) {
	ref := r.activeRef(orgID)

	var active *model.ActivePeriod
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err == nil {
			active, err = decodeActive(doc)
			return err
		}
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get active period")
		}

		active = &model.ActivePeriod{
			OrganizationID: orgID,
			Period:         initial,
			UpdatedAt:      time.Now().UTC(),
		}
		return tx.Create(ref, &activePeriodDocument{
			OrganizationID: orgID.String(),
			PeriodID:       initial.ID().String(),
			UpdatedAt:      active.UpdatedAt,
		})
	})
	if err != nil {
		return nil, translate(err, "failed to ensure active period", goerr.V("org_id", orgID))
	}

	return active, nil
}

func (r *periodRepository) Commit(ctx context.Context, orgID types.OrganizationID, plan interfaces.PlanFunc) (*model.PeriodCommit, error) {
	activeRef := r.activeRef(orgID)
	risksQuery := r.client.Collection(r.collections.risks()).Where("organization_id", "==", orgID.String())

	var committed *model.PeriodCommit
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(activeRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(interfaces.ErrNotFound, "active period not found", goerr.V("org_id", orgID))
			}
			return goerr.Wrap(err, "failed to get active period")
		}
		active, err := decodeActive(doc)
		if err != nil {
			return err
		}

		periodID := active.Period.ID()
		commitRef := r.commitRef(orgID, periodID)
		done, err := exists(tx, commitRef)
		if err != nil {
			return err
		}
		if done {
			return goerr.Wrap(interfaces.ErrAlreadyCommitted, "period already committed",
				goerr.V("org_id", orgID), goerr.V("period", periodID))
		}

		risks, err := collectRisks(tx.Documents(risksQuery), orgID)
		if err != nil {
			return err
		}

		snapshot, err := plan(active.Period, risks)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return goerr.New("commit plan returned no snapshot")
		}
		if err := snapshot.Validate(active.Period); err != nil {
			return err
		}

		for _, entry := range snapshot.Entries {
			if err := tx.Create(r.historyRef(entry.RiskID, periodID), newHistoryDocument(entry)); err != nil {
				return err
			}
		}
		c := snapshot.Commit
		if err := tx.Create(commitRef, &commitDocument{
			ID:             c.ID,
			OrganizationID: orgID.String(),
			PeriodID:       periodID.String(),
			CommittedBy:    c.CommittedBy,
			CommittedAt:    c.CommittedAt,
			Note:           c.Note,
			RowCount:       c.RowCount,
		}); err != nil {
			return err
		}
		committed = c
		return tx.Set(activeRef, &activePeriodDocument{
			OrganizationID: orgID.String(),
			PeriodID:       snapshot.Next.ID().String(),
			UpdatedAt:      c.CommittedAt,
		})
	})
	if err != nil {
		return nil, translate(err, "failed to commit period", goerr.V("org_id", orgID))
	}

	return committed, nil
}

func (r *periodRepository) GetCommit(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) (*model.PeriodCommit, error) {
	doc, err := r.commitRef(orgID, periodID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "commit not found", goerr.V("org_id", orgID), goerr.V("period", periodID))
		}
		return nil, goerr.Wrap(err, "failed to get commit", goerr.V("period", periodID))
	}
	var commitDoc commitDocument
	if err := doc.DataTo(&commitDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal commit", goerr.V("period", periodID))
	}
	return commitDoc.toModel()
}

func (r *periodRepository) ListCommits(ctx context.Context, orgID types.OrganizationID) ([]*model.PeriodCommit, error) {
	iter := r.client.Collection(r.collections.commits()).Where("organization_id", "==", orgID.String()).Documents(ctx)
	defer iter.Stop()

	commits := []*model.PeriodCommit{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate commits")
		}
		var commitDoc commitDocument
		if err := doc.DataTo(&commitDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal commit", goerr.V("doc", doc.Ref.ID))
		}
		commit, err := commitDoc.toModel()
		if err != nil {
			return nil, err
		}
		commits = append(commits, commit)
	}

	sort.Slice(commits, func(i, j int) bool { return commits[i].Period.Before(commits[j].Period) })
	return commits, nil
}

func (r *periodRepository) GetHistory(ctx context.Context, orgID types.OrganizationID, riskID int64, periodID model.PeriodID) (*model.RiskHistory, error) {
	doc, err := r.historyRef(riskID, periodID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "history not found",
				goerr.V("org_id", orgID), goerr.V("risk_id", riskID), goerr.V("period", periodID))
		}
		return nil, goerr.Wrap(err, "failed to get history", goerr.V("risk_id", riskID))
	}
	var historyDoc historyDocument
	if err := doc.DataTo(&historyDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal history", goerr.V("risk_id", riskID))
	}
	if historyDoc.OrganizationID != orgID.String() {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "history not found", goerr.V("org_id", orgID), goerr.V("risk_id", riskID))
	}
	return historyDoc.toModel()
}

func (r *periodRepository) ListHistoryByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.RiskHistory, error) {
	query := r.client.Collection(r.collections.histories()).
		Where("organization_id", "==", orgID.String()).
		Where("risk_id", "==", riskID)
	entries, err := collectHistories(query.Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Period.Before(entries[j].Period) })
	return entries, nil
}

func (r *periodRepository) ListHistoryByPeriod(ctx context.Context, orgID types.OrganizationID, periodID model.PeriodID) ([]*model.RiskHistory, error) {
	query := r.client.Collection(r.collections.histories()).
		Where("organization_id", "==", orgID.String()).
		Where("period_id", "==", periodID.String())
	entries, err := collectHistories(query.Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].RiskID < entries[j].RiskID })
	return entries, nil
}

func collectHistories(iter *firestore.DocumentIterator) ([]*model.RiskHistory, error) {
	defer iter.Stop()

	entries := []*model.RiskHistory{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate history")
		}
		var historyDoc historyDocument
		if err := doc.DataTo(&historyDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal history", goerr.V("doc", doc.Ref.ID))
		}
		entry, err := historyDoc.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
