package memory

import (
	"sort"
	"sync"

	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/domain/types"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every table behind one mutex so that compound operations
// (control write + risk re-derivation, period commit) are atomic the same way
// a database transaction would make them.
type Memory struct {
	store    *store
	sequence *sequenceRepository
	risk     *riskRepository
	control  *controlRepository
	period   *periodRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	s := newStore()
	return &Memory{
		store:    s,
		sequence: newSequenceRepository(),
		risk:     &riskRepository{store: s},
		control:  &controlRepository{store: s},
		period:   &periodRepository{store: s},
	}
}

func (m *Memory) Sequence() interfaces.SequenceRepository {
	return m.sequence
}

func (m *Memory) Risk() interfaces.RiskRepository {
	return m.risk
}

func (m *Memory) Control() interfaces.ControlRepository {
	return m.control
}

func (m *Memory) Period() interfaces.PeriodRepository {
	return m.period
}

func (m *Memory) Close() error {
	return nil
}

type historyKey struct {
	riskID   int64
	periodID model.PeriodID
}

type store struct {
	mu sync.Mutex

	nextRiskID    int64
	nextControlID int64

	risks        map[types.OrganizationID]map[int64]*model.Risk
	riskCodes    map[types.OrganizationID]map[string]int64
	controls     map[types.OrganizationID]map[int64]*model.Control
	controlCodes map[types.OrganizationID]map[string]int64

	active    map[types.OrganizationID]*model.ActivePeriod
	commits   map[types.OrganizationID]map[model.PeriodID]*model.PeriodCommit
	histories map[types.OrganizationID]map[historyKey]*model.RiskHistory
}

func newStore() *store {
	return &store{
		nextRiskID:    1,
		nextControlID: 1,
		risks:         make(map[types.OrganizationID]map[int64]*model.Risk),
		riskCodes:     make(map[types.OrganizationID]map[string]int64),
		controls:      make(map[types.OrganizationID]map[int64]*model.Control),
		controlCodes:  make(map[types.OrganizationID]map[string]int64),
		active:        make(map[types.OrganizationID]*model.ActivePeriod),
		commits:       make(map[types.OrganizationID]map[model.PeriodID]*model.PeriodCommit),
		histories:     make(map[types.OrganizationID]map[historyKey]*model.RiskHistory),
	}
}

// controlsOf returns copies of a risk's controls ordered by ID. Caller holds mu.
func (s *store) controlsOf(orgID types.OrganizationID, riskID int64) []*model.Control {
	var controls []*model.Control
	for _, c := range s.controls[orgID] {
		if c.RiskID == riskID {
			controls = append(controls, c.Copy())
		}
	}
	sort.Slice(controls, func(i, j int) bool { return controls[i].ID < controls[j].ID })
	return controls
}

// rederive runs derive against the stored controls and returns the risk with
// the new derived state, without storing it. Caller holds mu.
func (s *store) rederive(risk *model.Risk, derive interfaces.DeriveFunc) (*model.Risk, error) {
	derived, err := derive(risk.Copy(), s.controlsOf(risk.OrganizationID, risk.ID))
	if err != nil {
		return nil, err
	}
	next := risk.Copy()
	next.Derived = derived
	return next, nil
}

func ensure[K comparable, V any](m map[types.OrganizationID]map[K]V, orgID types.OrganizationID) map[K]V {
	if _, ok := m[orgID]; !ok {
		m[orgID] = make(map[K]V)
	}
	return m[orgID]
}
