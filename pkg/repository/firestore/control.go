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

type controlDocument struct {
	ID             int64     `firestore:"id"`
	OrganizationID string    `firestore:"organization_id"`
	RiskID         int64     `firestore:"risk_id"`
	Code           string    `firestore:"code"`
	Name           string    `firestore:"name"`
	Description    string    `firestore:"description"`
	Type           string    `firestore:"type"`
	Design         int       `firestore:"design"`
	Implementation int       `firestore:"implementation"`
	Monitoring     int       `firestore:"monitoring"`
	Evaluation     int       `firestore:"evaluation"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func newControlDocument(c *model.Control) *controlDocument {
	return &controlDocument{
		ID:             c.ID,
		OrganizationID: c.OrganizationID.String(),
		RiskID:         c.RiskID,
		Code:           c.Code,
		Name:           c.Name,
		Description:    c.Description,
		Type:           c.Type.String(),
		Design:         int(c.Design),
		Implementation: int(c.Implementation),
		Monitoring:     int(c.Monitoring),
		Evaluation:     int(c.Evaluation),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func (d *controlDocument) toModel() *model.Control {
	return &model.Control{
		ID:             d.ID,
		OrganizationID: types.OrganizationID(d.OrganizationID),
		RiskID:         d.RiskID,
		Code:           d.Code,
		Name:           d.Name,
		Description:    d.Description,
		Type:           types.ControlType(d.Type),
		Design:         types.DIMEScore(d.Design),
		Implementation: types.DIMEScore(d.Implementation),
		Monitoring:     types.DIMEScore(d.Monitoring),
		Evaluation:     types.DIMEScore(d.Evaluation),
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type controlRepository struct {
	client      *firestore.Client
	collections collections
}

func (r *controlRepository) controlRef(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.collections.controls()).Doc(idDoc(id))
}

func (r *controlRepository) riskRef(id int64) *firestore.DocumentRef {
	return r.client.Collection(r.collections.risks()).Doc(idDoc(id))
}

// loadControls reads every control of a risk inside tx, ordered by ID
func loadControls(tx *firestore.Transaction, col *firestore.CollectionRef, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	query := col.Where("organization_id", "==", orgID.String()).Where("risk_id", "==", riskID)
	return collectControls(tx.Documents(query))
}

func collectControls(iter *firestore.DocumentIterator) ([]*model.Control, error) {
	defer iter.Stop()

	controls := []*model.Control{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate controls")
		}
		var controlDoc controlDocument
		if err := doc.DataTo(&controlDoc); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal control", goerr.V("doc", doc.Ref.ID))
		}
		controls = append(controls, controlDoc.toModel())
	}

	sort.Slice(controls, func(i, j int) bool { return controls[i].ID < controls[j].ID })
	return controls, nil
}

func loadControl(tx *firestore.Transaction, ref *firestore.DocumentRef, orgID types.OrganizationID, id int64) (*model.Control, error) {
	doc, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get control", goerr.V("id", id))
	}
	var controlDoc controlDocument
	if err := doc.DataTo(&controlDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal control", goerr.V("id", id))
	}
	if controlDoc.OrganizationID != orgID.String() {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	return controlDoc.toModel(), nil
}

// replaceControl returns controls with the entry of the same ID swapped for
// c, or removed when c is nil
func replaceControl(controls []*model.Control, id int64, c *model.Control) []*model.Control {
	result := make([]*model.Control, 0, len(controls)+1)
	for _, existing := range controls {
		if existing.ID != id {
			result = append(result, existing)
		}
	}
	if c != nil {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (r *controlRepository) Create(ctx context.Context, control *model.Control, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	orgID := control.OrganizationID
	counterRef := r.client.Collection(r.collections.counters()).Doc("control_counter")
	codeRef := r.client.Collection(r.collections.codes()).Doc(joinKey(orgID.String(), "control", control.Code))
	riskRef := r.riskRef(control.RiskID)

	var created *model.Control
	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		risk, err := loadRisk(tx, riskRef, orgID, control.RiskID)
		if err != nil {
			return err
		}
		controls, err := loadControls(tx, r.client.Collection(r.collections.controls()), orgID, risk.ID)
		if err != nil {
			return err
		}
		id, err := peekNextID(tx, counterRef)
		if err != nil {
			return err
		}
		taken, err := exists(tx, codeRef)
		if err != nil {
			return err
		}
		if taken {
			return goerr.Wrap(interfaces.ErrConflict, "control code already exists",
				goerr.V("org_id", orgID), goerr.V("code", control.Code))
		}

		now := time.Now().UTC()
		created = control.Copy()
		created.ID = id
		created.CreatedAt = now
		created.UpdatedAt = now

		derived, err := derive(risk.Copy(), replaceControl(controls, id, created))
		if err != nil {
			return err
		}
		risk.Derived = derived
		updated = risk

		if err := setCounter(tx, counterRef, id); err != nil {
			return err
		}
		if err := tx.Create(codeRef, map[string]interface{}{"control_id": id}); err != nil {
			return err
		}
		if err := tx.Set(r.controlRef(id), newControlDocument(created)); err != nil {
			return err
		}
		return tx.Set(riskRef, newRiskDocument(risk))
	})
	if err != nil {
		return nil, nil, translate(err, "failed to create control", goerr.V("risk_id", control.RiskID))
	}

	return created, updated, nil
}

func (r *controlRepository) Get(ctx context.Context, orgID types.OrganizationID, id int64) (*model.Control, error) {
	doc, err := r.controlRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get control", goerr.V("id", id))
	}
	var controlDoc controlDocument
	if err := doc.DataTo(&controlDoc); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal control", goerr.V("id", id))
	}
	if controlDoc.OrganizationID != orgID.String() {
		return nil, goerr.Wrap(interfaces.ErrNotFound, "control not found", goerr.V("org_id", orgID), goerr.V("id", id))
	}
	return controlDoc.toModel(), nil
}

func (r *controlRepository) ListByRisk(ctx context.Context, orgID types.OrganizationID, riskID int64) ([]*model.Control, error) {
	doc, err := r.riskRef(riskID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "risk not found", goerr.V("org_id", orgID), goerr.V("risk_id", riskID))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("risk_id", riskID))
	}
	if _, err := decodeRisk(doc, orgID); err != nil {
		return nil, err
	}

	query := r.client.Collection(r.collections.controls()).
		Where("organization_id", "==", orgID.String()).
		Where("risk_id", "==", riskID)
	return collectControls(query.Documents(ctx))
}

func (r *controlRepository) Update(ctx context.Context, orgID types.OrganizationID, id int64, mutate func(*model.Control) error, derive interfaces.DeriveFunc) (*model.Control, *model.Risk, error) {
	ref := r.controlRef(id)

	var updatedControl *model.Control
	var updatedRisk *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := loadControl(tx, ref, orgID, id)
		if err != nil {
			return err
		}
		riskRef := r.riskRef(current.RiskID)
		risk, err := loadRisk(tx, riskRef, orgID, current.RiskID)
		if err != nil {
			return err
		}
		controls, err := loadControls(tx, r.client.Collection(r.collections.controls()), orgID, risk.ID)
		if err != nil {
			return err
		}

		next := current.Copy()
		if err := mutate(next); err != nil {
			return err
		}
		next.ID = current.ID
		next.OrganizationID = current.OrganizationID
		next.RiskID = current.RiskID
		next.Code = current.Code
		next.CreatedAt = current.CreatedAt
		next.UpdatedAt = time.Now().UTC()

		derived, err := derive(risk.Copy(), replaceControl(controls, id, next))
		if err != nil {
			return err
		}
		risk.Derived = derived
		updatedControl = next
		updatedRisk = risk

		if err := tx.Set(ref, newControlDocument(next)); err != nil {
			return err
		}
		return tx.Set(riskRef, newRiskDocument(risk))
	})
	if err != nil {
		return nil, nil, translate(err, "failed to update control", goerr.V("id", id))
	}

	return updatedControl, updatedRisk, nil
}

func (r *controlRepository) Delete(ctx context.Context, orgID types.OrganizationID, id int64, derive interfaces.DeriveFunc) (*model.Risk, error) {
	ref := r.controlRef(id)

	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current, err := loadControl(tx, ref, orgID, id)
		if err != nil {
			return err
		}
		riskRef := r.riskRef(current.RiskID)
		risk, err := loadRisk(tx, riskRef, orgID, current.RiskID)
		if err != nil {
			return err
		}
		controls, err := loadControls(tx, r.client.Collection(r.collections.controls()), orgID, risk.ID)
		if err != nil {
			return err
		}

		derived, err := derive(risk.Copy(), replaceControl(controls, id, nil))
		if err != nil {
			return err
		}
		risk.Derived = derived
		updated = risk

		if err := tx.Delete(ref); err != nil {
			return err
		}
		return tx.Set(riskRef, newRiskDocument(risk))
	})
	if err != nil {
		return nil, translate(err, "failed to delete control", goerr.V("id", id))
	}

	return updated, nil
}
