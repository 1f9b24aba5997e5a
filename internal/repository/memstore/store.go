// Package memstore implementa domain.Store e domain.UserDirectory em memória.
// As transações são serializadas por um mutex e aplicadas por cópia: o estado
// só é substituído quando a função da transação retorna nil.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorack/internal/domain"
	apperror "gorack/internal/errors"
)

// Store é seguro para uso concorrente.
type Store struct {
	mu    sync.Mutex
	state state
	now   func() time.Time
}

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// WithNow troca o relógio (testes).
func (s *Store) WithNow(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &tx{state: s.state.clone(), now: s.now}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.state = t.state
	return nil
}

func (s *Store) FindTransfer(_ context.Context, transferID string) (domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.transfers[transferID]
	if !ok {
		return domain.Transfer{}, apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	return cloneTransfer(t), nil
}

// ListTransfers retorna as mais recentes primeiro.
func (s *Store) ListTransfers(_ context.Context, filter domain.TransferFilter) ([]domain.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Transfer{}
	for i := len(s.state.transferOrder) - 1; i >= 0; i-- {
		t := s.state.transfers[s.state.transferOrder[i]]
		if !matches(t, filter) {
			continue
		}
		out = append(out, cloneTransfer(t))
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func matches(t domain.Transfer, f domain.TransferFilter) bool {
	if f.ProductID != "" && t.ProductID != f.ProductID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.ProjectID != "" {
		ref := domain.KnownProject(f.ProjectID)
		if !t.FromProject.Equal(ref) && !t.ToProject.Equal(ref) {
			return false
		}
	}
	return true
}

func (s *Store) ClaimEmailEvent(_ context.Context, transferID string, event domain.EmailEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.transfers[transferID]
	if !ok {
		return false, apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	if _, claimed := t.EmailEvents[event]; claimed {
		return false, nil
	}
	if t.EmailEvents == nil {
		t.EmailEvents = map[domain.EmailEvent]time.Time{}
	}
	t.EmailEvents[event] = s.now().UTC()
	s.state.transfers[transferID] = t
	return true, nil
}

func (s *Store) ReleaseEmailEvent(_ context.Context, transferID string, event domain.EmailEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.state.transfers[transferID]
	if !ok {
		return apperror.NewNotFoundError(fmt.Sprintf("Transferência %s não existe.", transferID))
	}
	delete(t.EmailEvents, event)
	s.state.transfers[transferID] = t
	return nil
}

// --- UserDirectory ---

func (s *Store) FindEmailsByIDs(_ context.Context, ids []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, id := range ids {
		if u, ok := s.state.users[id]; ok && u.Email != "" {
			out = append(out, u.Email)
		}
	}
	return out, nil
}

func (s *Store) FindAdminEmails(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, u := range s.state.users {
		if u.Role == domain.RoleAdmin && u.Email != "" {
			out = append(out, u.Email)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) FindProjectManagerEmails(_ context.Context, projectID string) ([]string, error) {
	return s.memberEmails(projectID, func(role domain.MemberRole) bool { return role == domain.MemberManager }), nil
}

func (s *Store) FindProjectUserEmails(_ context.Context, projectID string) ([]string, error) {
	return s.memberEmails(projectID, func(domain.MemberRole) bool { return true }), nil
}

func (s *Store) memberEmails(projectID string, keep func(domain.MemberRole) bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for userID, role := range s.state.members[projectID] {
		if !keep(role) {
			continue
		}
		if u, ok := s.state.users[userID]; ok && u.Email != "" {
			out = append(out, u.Email)
		}
	}
	sort.Strings(out)
	return out
}
