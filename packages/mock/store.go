package mock

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

var (
	errNotFound      = errors.New("not found")
	errConflict      = errors.New("already exists")
	errInvalidLogin  = errors.New("invalid credentials")
	errInvalidParent = errors.New("parent must be a folder of the same collection")
)

type account struct {
	user model.User
	hash string
	orgs []string
}

type collectionRecord struct {
	col   model.Collection
	order []string
	reqs  map[string]model.Request
}

// store is the in-memory state behind the mock API.
type store struct {
	mu          sync.RWMutex
	cost        int
	accounts    map[string]*account
	emails      map[string]string
	tokens      map[string]string
	codes       map[string]string
	orgs        map[string]model.Organization
	collections map[string]*collectionRecord
}

func newStore(cost int) *store {
	return &store{
		cost:        cost,
		accounts:    make(map[string]*account),
		emails:      make(map[string]string),
		tokens:      make(map[string]string),
		codes:       make(map[string]string),
		orgs:        make(map[string]model.Organization),
		collections: make(map[string]*collectionRecord),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// register creates a user with a personal organization and returns a fresh token.
func (s *store) register(name, email, phone, password string) (string, model.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return "", model.User{}, fmt.Errorf("email is required")
	}

	var hash string
	if password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return "", model.User{}, err
		}
		hash = string(h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[email]; ok {
		return "", model.User{}, errConflict
	}

	user := model.User{ID: uuid.NewString(), Name: name, Email: email, Phone: phone}
	org := model.Organization{ID: uuid.NewString(), Name: orgName(user)}
	s.orgs[org.ID] = org
	s.accounts[user.ID] = &account{user: user, hash: hash, orgs: []string{org.ID}}
	s.emails[email] = user.ID

	return s.issue(user.ID), user, nil
}

func orgName(u model.User) string {
	if u.Name != "" {
		return u.Name + "'s workspace"
	}
	return "Personal"
}

func (s *store) issue(userID string) string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	token := hex.EncodeToString(buf)
	s.tokens[token] = userID
	return token
}

// requestCode creates a one-time six digit login code for a known email.
func (s *store) requestCode(email string) (string, error) {
	email = normalizeEmail(email)
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.emails[email]; !ok {
		return "", errNotFound
	}
	s.codes[email] = code
	return code, nil
}

func (s *store) code(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.codes[normalizeEmail(email)]
	return c, ok
}

// signIn checks a password or consumes a login code.
func (s *store) signIn(email, password, code string) (string, model.User, error) {
	email = normalizeEmail(email)

	s.mu.RLock()
	id, ok := s.emails[email]
	var acc account
	if ok {
		acc = *s.accounts[id]
	}
	s.mu.RUnlock()
	if !ok {
		return "", model.User{}, errInvalidLogin
	}

	switch {
	case code != "":
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.codes[email] != code {
			return "", model.User{}, errInvalidLogin
		}
		delete(s.codes, email)
		return s.issue(id), acc.user, nil
	case password != "" && acc.hash != "":
		if bcrypt.CompareHashAndPassword([]byte(acc.hash), []byte(password)) != nil {
			return "", model.User{}, errInvalidLogin
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.issue(id), acc.user, nil
	}
	return "", model.User{}, errInvalidLogin
}

func (s *store) userForToken(token string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return model.User{}, false
	}
	acc, ok := s.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

func (s *store) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *store) rename(userID, name string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return model.User{}, errNotFound
	}
	acc.user.Name = name
	return acc.user, nil
}

func (s *store) organizations(userID string) []model.Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil
	}
	out := make([]model.Organization, 0, len(acc.orgs))
	for _, id := range acc.orgs {
		out = append(out, s.orgs[id])
	}
	return out
}

func (s *store) member(userID, orgID string) bool {
	acc, ok := s.accounts[userID]
	if !ok {
		return false
	}
	for _, id := range acc.orgs {
		if id == orgID {
			return true
		}
	}
	return false
}

// collection returns the record when userID belongs to its organization.
// Callers hold the lock.
func (s *store) collection(userID, collectionID string) (*collectionRecord, error) {
	rec, ok := s.collections[collectionID]
	if !ok || !s.member(userID, rec.col.OrganizationID) {
		return nil, errNotFound
	}
	return rec, nil
}

func (rec *collectionRecord) snapshot(withRequests bool) model.Collection {
	col := rec.col
	col.Requests = nil
	if withRequests {
		col.Requests = rec.list()
	}
	if col.Environments != nil {
		envs := *col.Environments
		col.Environments = &envs
	}
	return col
}

func (rec *collectionRecord) list() []model.Request {
	out := make([]model.Request, 0, len(rec.order))
	for _, id := range rec.order {
		out = append(out, rec.reqs[id].Clone())
	}
	return out
}

func (s *store) listCollections(userID, orgID string) ([]model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.member(userID, orgID) {
		return nil, errNotFound
	}
	out := []model.Collection{}
	for _, rec := range s.collections {
		if rec.col.OrganizationID == orgID {
			out = append(out, rec.snapshot(false))
		}
	}
	sortCollections(out)
	return out, nil
}

func (s *store) getCollection(userID, orgID, collectionID string) (model.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil || rec.col.OrganizationID != orgID {
		return model.Collection{}, errNotFound
	}
	return rec.snapshot(true), nil
}

func (s *store) createCollection(userID, orgID, name string) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.member(userID, orgID) {
		return model.Collection{}, errNotFound
	}
	rec := &collectionRecord{
		col: model.Collection{
			ID:             uuid.NewString(),
			OrganizationID: orgID,
			Name:           name,
			Environments:   &model.Environments{Variables: []model.Variable{}, Environments: []model.Environment{}},
		},
		reqs: make(map[string]model.Request),
	}
	s.collections[rec.col.ID] = rec
	return rec.snapshot(true), nil
}

func (s *store) renameCollection(userID, orgID, collectionID, name string) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil || rec.col.OrganizationID != orgID {
		return model.Collection{}, errNotFound
	}
	rec.col.Name = name
	return rec.snapshot(true), nil
}

func (s *store) deleteCollection(userID, orgID, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil || rec.col.OrganizationID != orgID {
		return errNotFound
	}
	delete(s.collections, collectionID)
	return nil
}

func (s *store) saveEnvironments(userID, collectionID string, envs model.Environments) (model.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return model.Collection{}, err
	}
	if envs.Variables == nil {
		envs.Variables = []model.Variable{}
	}
	if envs.Environments == nil {
		envs.Environments = []model.Environment{}
	}
	rec.col.Environments = &envs
	return rec.snapshot(true), nil
}

func (s *store) listRequests(userID, collectionID string) ([]model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return nil, err
	}
	return rec.list(), nil
}

func (s *store) getRequest(userID, collectionID, requestID string) (model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return model.Request{}, err
	}
	req, ok := rec.reqs[requestID]
	if !ok {
		return model.Request{}, errNotFound
	}
	return req.Clone(), nil
}

func (rec *collectionRecord) checkParent(parentID, self string) error {
	if parentID == "" {
		return nil
	}
	parent, ok := rec.reqs[parentID]
	if !ok || !parent.IsFolder() {
		return errInvalidParent
	}
	for id := parentID; id != ""; id = rec.reqs[id].ParentID {
		if id == self {
			return errInvalidParent
		}
	}
	return nil
}

func (s *store) createRequest(userID, collectionID string, req model.Request) (model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return model.Request{}, err
	}
	if err := rec.checkParent(req.ParentID, ""); err != nil {
		return model.Request{}, err
	}
	req = req.Normalize().Clone()
	req.ID = uuid.NewString()
	req.CollectionID = collectionID
	rec.reqs[req.ID] = req
	rec.order = append(rec.order, req.ID)
	return req.Clone(), nil
}

// updateRequest replaces the stored state; id, collection and item type are kept.
func (s *store) updateRequest(userID, collectionID, requestID string, req model.Request) (model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return model.Request{}, err
	}
	old, ok := rec.reqs[requestID]
	if !ok {
		return model.Request{}, errNotFound
	}
	if err := rec.checkParent(req.ParentID, requestID); err != nil {
		return model.Request{}, err
	}
	req.Type = old.Type
	req = req.Normalize().Clone()
	req.ID = requestID
	req.CollectionID = collectionID
	rec.reqs[requestID] = req
	return req.Clone(), nil
}

// deleteRequest removes an item and all its descendants, returning every removed id.
func (s *store) deleteRequest(userID, collectionID, requestID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.collection(userID, collectionID)
	if err != nil {
		return nil, err
	}
	if _, ok := rec.reqs[requestID]; !ok {
		return nil, errNotFound
	}

	doomed := map[string]bool{requestID: true}
	for grew := true; grew; {
		grew = false
		for id, r := range rec.reqs {
			if !doomed[id] && doomed[r.ParentID] {
				doomed[id] = true
				grew = true
			}
		}
	}

	ids := make([]string, 0, len(doomed))
	kept := rec.order[:0]
	for _, id := range rec.order {
		if doomed[id] {
			ids = append(ids, id)
			delete(rec.reqs, id)
			continue
		}
		kept = append(kept, id)
	}
	rec.order = kept
	return ids, nil
}

func sortCollections(cols []model.Collection) {
	sort.Slice(cols, func(i, j int) bool {
		a, b := strings.ToLower(cols[i].Name), strings.ToLower(cols[j].Name)
		if a != b {
			return a < b
		}
		return cols[i].ID < cols[j].ID
	})
}
