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

type riskDocument struct {
	ID                 int64     `firestore:"id"`
	OrganizationID     string    `firestore:"organization_id"`
	Code               string    `firestore:"code"`
	Title              string    `firestore:"title"`
	Description        string    `firestore:"description"`
	Category           string    `firestore:"category"`
	Owner              string    `firestore:"owner"`
	Status             string    `firestore:"status"`
	InherentLikelihood int       `firestore:"inherent_likelihood"`
	InherentImpact     int       `firestore:"inherent_impact"`
	ResidualLikelihood int       `firestore:"residual_likelihood"`
	ResidualImpact     int       `firestore:"residual_impact"`
	ResidualScore      int       `firestore:"residual_score"`
	LastComputedAt     time.Time `firestore:"last_computed_at"`
	CreatedAt          time.Time `firestore:"created_at"`
	UpdatedAt          time.Time `firestore:"updated_at"`
}

func newRiskDocument(r *model.Risk) *riskDocument {
	return &riskDocument{
		ID:                 r.ID,
		OrganizationID:     r.OrganizationID.String(),
		Code:               r.Code,
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category.String(),
		Owner:              r.Owner,
		Status:             r.Status.String(),
		InherentLikelihood: r.InherentLikelihood.Int(),
		InherentImpact:     r.InherentImpact.Int(),
		ResidualLikelihood: r.Derived.ResidualLikelihood.Int(),
		ResidualImpact:     r.Derived.ResidualImpact.Int(),
		ResidualScore:      r.Derived.ResidualScore,
		LastComputedAt:     r.Derived.LastComputedAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (d *riskDocument) toModel() *model.Risk {
	return &model.Risk{
		ID:                 d.ID,
		OrganizationID:     types.OrganizationID(d.OrganizationID),
		Code:               d.Code,
		Title:              d.Title,
		Description:        d.Description,
		Category:           types.CategoryID(d.Category),
		Owner:              d.Owner,
		Status:             types.RiskStatus(d.Status),
		InherentLikelihood: types.Likelihood(d.InherentLikelihood),
		InherentImpact:     types.Impact(d.InherentImpact),
		Derived: model.DerivedState{
			ResidualLikelihood: types.Likelihood(d.ResidualLikelihood),
			ResidualImpact:     types.Impact(d.ResidualImpact),
			ResidualScore:      d.ResidualScore,
			LastComputedAt:     d.LastComputedAt,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type riskRepository struct {
	client      *firestore.Client
	collections collections
}

func (r *riskRepository) riskRef(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.collections.risks()).Doc(idDoc(id))
}

func (r *riskRepository) codeRef(orgID types.OrganizationID, code string) *firestore.DocumentRef {
	return r.client.Collection(r.collections.codes()).Doc(joinKey(orgID.String(), "risk", code))
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk, derive interfaces.DeriveFunc) (*model.Risk, error) {
	counterRef := r.client.Collection(r.collections.counters()).Doc("risk_counter")
	codeRef := r.codeRef(risk.OrganizationID, risk.Code)

	var created *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := peekNextID(tx, counterRef)
		if err != nil {
			return err
		}
		taken, err := exists(tx, codeRef)
		if err != nil {
			return err
		}
		if taken {
			return goerr.Wrap(interfaces.ErrConflict, "risk code already exists",
				goerr.V("org_id", risk.OrganizationID), goerr.V("code", risk.Code))
		}

		now := time.Now().UTC()
		created = risk.Copy()
		created.ID = id
		created.CreatedAt = now
		created.UpdatedAt = now
		derived, err := derive(created.Copy(), nil)
		if err != nil {
			return err
		}
		created.Derived = derived

		if err := setCounter(tx, counterRef, id); err != nil {
			return err
		}
		if err := tx.Create(codeRef, map[string]interface{}{"risk_id": id}); err != nil {
			return err
		}
		return tx.Set(r.riskRef(id), newRiskDocument(created))
	})
	if err != nil {
		return nil, translate(err, "failed to create risk", goerr.V("code", risk.Code))
	}

	return created, nil
}

// loadRisk reads a risk inside tx and hides risks of other organizations
func loadRisk(tx *firestore.Transaction, ref *firestore.DocumentRef, orgID types.OrganizationID, id int64) (*model.Risk, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	return decodeRisk(doc, orgID)
}

func decodeRisk(doc *firestore.DocumentSnapshot, orgID types.OrganizationID) (*model.Risk, error) {
	var riskDoc riskDocument
	if err := doc.DataTo(&riskDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal risk", goerr.V("doc", doc.Ref.ID))
	}
	if riskDoc.OrganizationID != orgID.String() {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", riskDoc.ID))
	}
	return riskDoc.toModel(), nil
}

func (r *riskRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Risk, error) {
	doc, err := r.riskRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}
	return decodeRisk(doc, orgID)
}

func (r *riskRepository) GetByCode(ctx context.Context, orgID types.OrganizationID, code string) (*model.Risk, error) {
	iter := r.client.Collection(r.collections.risks()).
		Where("organization_id", "==", orgID.String()).
		Where("code", "==", code).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("code", code))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query risk", goerr.V("code", code))
	}
	return decodeRisk(doc, orgID)
}

func (r *riskRepository) List(ctx context.Context, orgID types.OrganizationID) ([]*model.Risk, error) {
	query := r.client.Collection(r.collections.risks()).Where("organization_id", "==", orgID.String())
	return collectRisks(query.Documents(ctx), orgID)
}

func collectRisks(iter *firestore.DocumentIterator, orgID types.OrganizationID) ([]*model.Risk, error) {
	defer iter.Stop()

	risks := []*model.Risk{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate risks")
		}
		risk, err := decodeRisk(doc, orgID)
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}

	sort.Slice(risks, func(i, j int) bool { return risks[i].ID < risks[j].ID })
	return risks, nil
}

func (r *riskRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Risk) error, derive interfaces.DeriveFunc) (*model.Risk, error) {
	ref := r.riskRef(id)

	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := loadRisk(tx, ref, orgID, id)
		if err != nil {
			return err
		}
		controls, err := loadControls(tx, r.client.Collection(r.collections.controls()), orgID, id)
		if err != nil {
			return err
		}

		next := current.Copy()
		if err := mutate(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.OrganizationID = current.OrganizationID
		next.Code = current.Code
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		derived, err := derive(next.Copy(), controls)
		if err != nil {
			return err
		}
		next.Derived = derived
		updated = next
		return tx.Set(ref, newRiskDocument(next))
	})
	if err != nil {
		return nil, translate(err, "failed to update risk", goerr.V("id", id))
	}

	return updated, nil
}

func (r *riskRepository) Recompute(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	ref := r.riskRef(id)

	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := loadRisk(tx, ref, orgID, id)
		if err != nil {
			return err
		}
		controls, err := loadControls(tx, r.client.Collection(r.collections.controls()), orgID, id)
		if err != nil {
			return err
		}

		derived, err := derive(current.Copy(), controls)
		if err != nil {
			return err
		}
		current.Derived = derived
		updated = current
		return tx.Set(ref, newRiskDocument(current))
	})
	if err != nil {
		return nil, translate(err, "failed to recompute risk", goerr.V("id", id))
	}

	return updated, nil
}
