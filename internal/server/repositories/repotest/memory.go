// Package repotest provides an in-memory RepositoryManager for service and
// handler tests. Repositories ignore the DBTX they are bound to; rows live in
// the Store and are guarded by its mutex.
package repotest

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/dmitrijs2005/workout/internal/dbx"
	"github.com/dmitrijs2005/workout/internal/server/models"
	"github.com/dmitrijs2005/workout/internal/server/repositories/messages"
	"github.com/dmitrijs2005/workout/internal/server/repositories/users"
)

type Store struct {
	mu       sync.Mutex
	users    map[int64]*models.User
	messages map[int64]*models.Message
	nextUser int64
	nextMsg  int64
	epoch    time.Time

	// Err, when set, is returned by every repository call.
	Err error

	// Write counters.
	UserCreates    int
	EmailUpdates   int
	MessageCreates int
}

func NewStore() *Store {
	return &Store{
		users:    map[int64]*models.User{},
		messages: map[int64]*models.Message{},
		epoch:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }

func (s *Store) Users(dbx.DBTX) users.Repository { return userRepo{s} }

func (s *Store) Messages(dbx.DBTX) messages.Repository { return messageRepo{s} }

// UserCount reports how many users exist.
func (s *Store) UserCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// tick returns a strictly increasing timestamp; callers hold mu.
func (s *Store) tick(seq int64) time.Time {
	return s.epoch.Add(time.Duration(seq) * time.Millisecond)
}

type userRepo struct{ s *Store }

func (r userRepo) GetBySubject(_ context.Context, sub string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, u := range r.s.users {
		if u.CognitoSub == sub {
			c := *u
			return &c, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r userRepo) Create(_ context.Context, sub string, email *string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	r.s.nextUser++
	r.s.UserCreates++
	u := &models.User{ID: r.s.nextUser, CognitoSub: sub, Email: email, CreatedAt: r.s.tick(r.s.nextUser)}
	r.s.users[u.ID] = u
	c := *u
	return &c, nil
}

func (r userRepo) UpdateEmail(_ context.Context, id int64, email string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrNotFound
	}
	r.s.EmailUpdates++
	u.Email = &email
	return nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) Create(_ context.Context, userID int64, text string) (*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	r.s.nextMsg++
	r.s.MessageCreates++
	m := &models.Message{ID: r.s.nextMsg, UserID: userID, Text: text, CreatedAt: r.s.tick(r.s.nextMsg)}
	r.s.messages[m.ID] = m
	c := *m
	return &c, nil
}

func (r messageRepo) ListByUser(_ context.Context, userID int64) ([]*models.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	out := []*models.Message{}
	for _, m := range r.s.messages {
		if m.UserID == userID {
			c := *m
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r messageRepo) DeleteOwned(_ context.Context, userID, messageID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	m, ok := r.s.messages[messageID]
	if !ok || m.UserID != userID {
		return common.ErrNotFound
	}
	delete(r.s.messages, messageID)
	return nil
}
