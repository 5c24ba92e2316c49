package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
)

// RecordingStore counts writes passing through to the wrapped store.
type RecordingStore struct {
	docstore.Store
	mu      sync.Mutex
	updates int
	creates int
}

func NewRecordingStore(inner docstore.Store) *RecordingStore {
	return &RecordingStore{Store: inner}
}

func (s *RecordingStore) Update(ctx context.Context, coll docstore.Collection, id string, fields docstore.Fields, conds ...docstore.Filter) error {
	s.mu.Lock()
	s.updates++
	s.mu.Unlock()
	return s.Store.Update(ctx, coll, id, fields, conds...)
}

func (s *RecordingStore) Create(ctx context.Context, coll docstore.Collection, doc docstore.Document) (string, error) {
	s.mu.Lock()
	s.creates++
	s.mu.Unlock()
	return s.Store.Create(ctx, coll, doc)
}

func (s *RecordingStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func (s *RecordingStore) Creates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

// FaultyStore injects errors for selected operations and collections.
type FaultyStore struct {
	docstore.Store
	mu        sync.Mutex
	getErr    map[docstore.Collection]error
	queryErr  map[docstore.Collection]error
	createErr map[docstore.Collection]error
	updateErr map[docstore.Collection]error
}

func NewFaultyStore(inner docstore.Store) *FaultyStore {
	return &FaultyStore{
		Store:     inner,
		getErr:    map[docstore.Collection]error{},
		queryErr:  map[docstore.Collection]error{},
		createErr: map[docstore.Collection]error{},
		updateErr: map[docstore.Collection]error{},
	}
}

func (s *FaultyStore) FailGet(coll docstore.Collection, err error)    { s.set(s.getErr, coll, err) }
func (s *FaultyStore) FailQuery(coll docstore.Collection, err error)  { s.set(s.queryErr, coll, err) }
func (s *FaultyStore) FailCreate(coll docstore.Collection, err error) { s.set(s.createErr, coll, err) }
func (s *FaultyStore) FailUpdate(coll docstore.Collection, err error) { s.set(s.updateErr, coll, err) }

func (s *FaultyStore) set(m map[docstore.Collection]error, coll docstore.Collection, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m[coll] = err
}

func (s *FaultyStore) get(m map[docstore.Collection]error, coll docstore.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return m[coll]
}

func (s *FaultyStore) Get(ctx context.Context, coll docstore.Collection, id string, dst interface{}) error {
	if err := s.get(s.getErr, coll); err != nil {
		return err
	}
	return s.Store.Get(ctx, coll, id, dst)
}

func (s *FaultyStore) Query(ctx context.Context, coll docstore.Collection, q docstore.Query, dst interface{}) error {
	if err := s.get(s.queryErr, coll); err != nil {
		return err
	}
	return s.Store.Query(ctx, coll, q, dst)
}

func (s *FaultyStore) Create(ctx context.Context, coll docstore.Collection, doc docstore.Document) (string, error) {
	if err := s.get(s.createErr, coll); err != nil {
		return "", err
	}
	return s.Store.Create(ctx, coll, doc)
}

func (s *FaultyStore) Update(ctx context.Context, coll docstore.Collection, id string, fields docstore.Fields, conds ...docstore.Filter) error {
	if err := s.get(s.updateErr, coll); err != nil {
		return err
	}
	return s.Store.Update(ctx, coll, id, fields, conds...)
}
