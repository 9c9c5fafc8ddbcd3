package collection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// Backend persists the requests of a collection. *api.Client implements it.
type Backend interface {
	Requests(ctx context.Context, collectionID string) ([]model.Request, error)
	CreateRequest(ctx context.Context, collectionID string, req model.Request) (*model.Request, error)
	UpdateRequest(ctx context.Context, collectionID string, req model.Request) (*model.Request, error)
	DeleteRequest(ctx context.Context, collectionID, requestID string) ([]string, error)
}

// Service applies tree mutations to the backend first and then reconciles the local
// tree from the answer. Without a backend it works on the local tree only and assigns
// ids itself.
type Service struct {
	collectionID string
	backend      Backend
	tree         *Tree
	logger       *slog.Logger
}

type Option func(*Service)

func WithBackend(b Backend) Option {
	return func(s *Service) {
		s.backend = b
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService serves the collection with the given id, starting from reqs.
func NewService(collectionID string, reqs []model.Request, opts ...Option) *Service {
	s := &Service{
		collectionID: collectionID,
		tree:         NewTree(reqs),
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CollectionID() string {
	return s.collectionID
}

func (s *Service) Tree() *Tree {
	return s.tree
}

// Refresh reloads every request from the backend.
func (s *Service) Refresh(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	reqs, err := s.backend.Requests(ctx, s.collectionID)
	if err != nil {
		return fmt.Errorf("refresh collection %s: %w", s.collectionID, err)
	}
	s.tree.Load(reqs)
	return nil
}

// CreateRequest adds a request named name under parentID (empty for the root).
func (s *Service) CreateRequest(ctx context.Context, name, parentID string) (model.Request, error) {
	req := model.NewRequest(name)
	req.ParentID = parentID
	return s.create(ctx, req)
}

// CreateFolder adds a folder named name under parentID (empty for the root).
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (model.Request, error) {
	f := model.NewFolder(name)
	f.ParentID = parentID
	return s.create(ctx, f)
}

// Add stores a fully populated request, e.g. one produced by an importer.
func (s *Service) Add(ctx context.Context, req model.Request) (model.Request, error) {
	req.ID = ""
	return s.create(ctx, req)
}

func (s *Service) create(ctx context.Context, req model.Request) (model.Request, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Request{}, ErrEmptyName
	}
	if err := s.tree.CheckParent(req.ParentID); err != nil {
		return model.Request{}, err
	}
	req.CollectionID = s.collectionID
	req = req.Normalize()

	if s.backend == nil {
		req.ID = uuid.NewString()
	} else {
		created, err := s.backend.CreateRequest(ctx, s.collectionID, req)
		if err != nil {
			return model.Request{}, fmt.Errorf("create %q: %w", req.Name, err)
		}
		req = *created
	}

	if err := s.tree.Insert(req); err != nil {
		return model.Request{}, err
	}
	s.logger.Debug("item created", "collection", s.collectionID, "id", req.ID, "type", req.Type)
	return req, nil
}

// Rename renames a request or folder.
func (s *Service) Rename(ctx context.Context, id, name string) (model.Request, error) {
	if strings.TrimSpace(name) == "" {
		return model.Request{}, ErrEmptyName
	}
	node, ok := s.tree.Get(id)
	if !ok {
		return model.Request{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.backend == nil {
		return s.tree.Rename(id, name)
	}

	node.Name = name
	updated, err := s.backend.UpdateRequest(ctx, s.collectionID, node)
	if err != nil {
		return model.Request{}, fmt.Errorf("rename %s: %w", id, err)
	}
	return s.tree.Update(*updated)
}

// Save commits the full state of req. It is the persistence step of the autosave.
func (s *Service) Save(ctx context.Context, req model.Request) error {
	if _, ok := s.tree.Get(req.ID); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, req.ID)
	}
	if s.backend != nil {
		updated, err := s.backend.UpdateRequest(ctx, s.collectionID, req)
		if err != nil {
			return fmt.Errorf("save %s: %w", req.ID, err)
		}
		req = *updated
	}
	_, err := s.tree.Update(req)
	return err
}

// Delete removes id and its descendants and returns every deleted id. The backend's
// list is authoritative; descendants it omits are removed locally as well.
func (s *Service) Delete(ctx context.Context, id string) ([]string, error) {
	local, err := s.tree.Descendants(id)
	if err != nil {
		return nil, err
	}

	ids := local
	if s.backend != nil {
		remote, err := s.backend.DeleteRequest(ctx, s.collectionID, id)
		if err != nil {
			return nil, fmt.Errorf("delete %s: %w", id, err)
		}
		ids = union(remote, local)
	}

	s.tree.Remove(ids...)
	s.logger.Debug("items deleted", "collection", s.collectionID, "ids", ids)
	return ids, nil
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
