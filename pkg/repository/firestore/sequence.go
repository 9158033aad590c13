package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type sequenceDocument struct {
	OrganizationID string    `firestore:"organization_id"`
	Name           string    `firestore:"name"`
	Value          int64     `firestore:"value"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

type sequenceRepository struct {
	client      *firestore.Client
	collections collections
}

func (r *sequenceRepository) doc(orgID types.OrganizationID, name types.CounterName) *firestore.DocumentRef {
	return r.client.Collection(r.collections.sequences()).Doc(joinKey(orgID.String(), name.String()))
}

func (r *sequenceRepository) Next(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (int64, error) {
	ref := r.doc(orgID, name)

	var next int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current := sequenceDocument{OrganizationID: orgID.String(), Name: name.String()}
		doc, err := tx.Get(ref)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return goerr.Wrap(err, "failed to get counter")
		default:
			if err := doc.DataTo(&current); err != nil {
				return goerr.Wrap(err, "failed to unmarshal counter")
			}
		}

		current.Value++
		current.UpdatedAt = time.Now().UTC()
		next = current.Value
		return tx.Set(ref, &current)
	})
	if err != nil {
		return 0, translate(err, "failed to increment counter", goerr.V("org_id", orgID), goerr.V("name", name))
	}

	return next, nil
}

func (r *sequenceRepository) Get(ctx context.Context, orgID types.OrganizationID, name types.CounterName) (*model.SequenceCounter, error) {
	doc, err := r.doc(orgID, name).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(interfaces.ErrNotFound, "counter not found", goerr.V("org_id", orgID), goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to get counter", goerr.V("org_id", orgID), goerr.V("name", name))
	}

	var current sequenceDocument
	if err := doc.DataTo(&current); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal counter")
	}

	return &model.SequenceCounter{
		OrganizationID: orgID,
		Name:           name,
		Value:          current.Value,
		UpdatedAt:      current.UpdatedAt,
	}, nil
}
