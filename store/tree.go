package store

import (
	"context"
	"sync"

	"github.com/Daskott/famtree/server/models"
)

const TREE_ENTITY = "entities.family_tree"

type TreeService interface {
	Tree(ctx context.Context, id uint) (*models.FamilyTree, error)
}

type TreeState struct {
	Tree    *models.FamilyTree `json:"tree"`
	Loading bool               `json:"loading"`
	Error   string             `json:"error"`
}

// TreeStore holds the family tree view: one family with its members and
// relationships.
type TreeStore struct {
	mu       sync.Mutex
	service  TreeService
	inFlight int
	state    TreeState
}

func NewTreeStore(service TreeService) *TreeStore {
	return &TreeStore{service: service}
}

func (s *TreeStore) State() TreeState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load replaces the tree with family familyID's tree.
func (s *TreeStore) Load(ctx context.Context, familyID uint) (*models.FamilyTree, error) {
	s.mu.Lock()
	s.inFlight++
	s.state.Loading = true
	s.mu.Unlock()

	tree, err := s.service.Tree(ctx, familyID)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight--
	s.state.Loading = s.inFlight > 0

	if err != nil {
		s.state.Tree = nil
		s.state.Error = ErrorMessage(TREE_ENTITY, GET_ACTION, err)
		return nil, err
	}

	s.state.Tree = tree
	s.state.Error = ""
	return tree, nil
}
