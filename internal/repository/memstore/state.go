package memstore

import (
	"time"

	"gorack/internal/domain"
)

type holdKey struct {
	projectID string
	productID string
}

type rackHoldKey struct {
	rackID    string
	projectID string
	productID string
}

// state é o conjunto completo de dados em memória. Cada transação trabalha em
// um clone e só substitui o estado do Store se terminar sem erro.
type state struct {
	products      map[string]domain.Product
	projects      map[string]domain.Project
	racks         map[string]domain.Rack
	projectHolds  map[holdKey]domain.ProjectHold
	rackHolds     map[rackHoldKey]domain.RackHold
	transfers     map[string]domain.Transfer
	transferOrder []string
	users         map[string]domain.User
	members       map[string]map[string]domain.MemberRole
}

func newState() state {
	return state{
		products:     map[string]domain.Product{},
		projects:     map[string]domain.Project{},
		racks:        map[string]domain.Rack{},
		projectHolds: map[holdKey]domain.ProjectHold{},
		rackHolds:    map[rackHoldKey]domain.RackHold{},
		transfers:    map[string]domain.Transfer{},
		users:        map[string]domain.User{},
		members:      map[string]map[string]domain.MemberRole{},
	}
}

func (s state) clone() state {
	out := newState()
	for k, v := range s.products {
		out.products[k] = cloneProduct(v)
	}
	for k, v := range s.projects {
		out.projects[k] = cloneProject(v)
	}
	for k, v := range s.racks {
		out.racks[k] = cloneRack(v)
	}
	for k, v := range s.projectHolds {
		out.projectHolds[k] = v
	}
	for k, v := range s.rackHolds {
		out.rackHolds[k] = v
	}
	for k, v := range s.transfers {
		out.transfers[k] = cloneTransfer(v)
	}
	out.transferOrder = append([]string(nil), s.transferOrder...)
	for k, v := range s.users {
		out.users[k] = v
	}
	for project, members := range s.members {
		m := make(map[string]domain.MemberRole, len(members))
		for user, role := range members {
			m[user] = role
		}
		out.members[project] = m
	}
	return out
}

func cloneProduct(p domain.Product) domain.Product {
	p.IncludedProjects = append([]string(nil), p.IncludedProjects...)
	return p
}

func cloneProject(p domain.Project) domain.Project {
	p.RackIDs = append([]string(nil), p.RackIDs...)
	return p
}

func cloneRack(r domain.Rack) domain.Rack {
	r.Products = append([]domain.RackProduct(nil), r.Products...)
	return r
}

func cloneTransfer(t domain.Transfer) domain.Transfer {
	if t.Approved != nil {
		v := *t.Approved
		t.Approved = &v
	}
	t.ApprovedAt = cloneTime(t.ApprovedAt)
	t.RejectedAt = cloneTime(t.RejectedAt)
	t.CompletedAt = cloneTime(t.CompletedAt)
	if t.EmailEvents != nil {
		events := make(map[domain.EmailEvent]time.Time, len(t.EmailEvents))
		for k, v := range t.EmailEvents {
			events[k] = v
		}
		t.EmailEvents = events
	}
	return t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
