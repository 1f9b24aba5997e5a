package memstore

import (
	"encoding/json"
	"fmt"
	"io"

	"gorack/internal/domain"
)

// AddProduct cadastra (ou substitui) um produto.
func (s *Store) AddProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.state.products[p.ID] = cloneProduct(p)
}

// AddProject cadastra um projeto; os racks são ligados por AddRack.
func (s *Store) AddProject(p domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now().UTC()
	}
	s.state.projects[p.ID] = cloneProject(p)
}

// AddRack cadastra um rack e o inclui na lista do projeto dono.
func (s *Store) AddRack(r domain.Rack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.state.projects[r.ProjectID]
	if !ok {
		return fmt.Errorf("projeto %s não cadastrado para o rack %s", r.ProjectID, r.ID)
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	s.state.racks[r.ID] = cloneRack(r)
	if !project.HasRack(r.ID) {
		project.RackIDs = append(project.RackIDs, r.ID)
		s.state.projects[project.ID] = project
	}
	return nil
}

func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

func (s *Store) AddMember(projectID, userID string, role domain.MemberRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.members[projectID] == nil {
		s.state.members[projectID] = map[string]domain.MemberRole{}
	}
	s.state.members[projectID][userID] = role
}

// StockAt retorna o estoque do produto no rack.
func (s *Store) StockAt(rackID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.racks[rackID].StockOf(productID)
}

// TotalOnHand soma o estoque do produto em todos os racks.
func (s *Store) TotalOnHand(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, r := range s.state.racks {
		total += r.StockOf(productID)
	}
	return total
}

// HeldQuantity retorna a reserva do projeto para o produto.
func (s *Store) HeldQuantity(projectID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.projectHolds[holdKey{projectID, productID}].Held
}

// RackHeldQuantity retorna a reserva atribuída ao rack.
func (s *Store) RackHeldQuantity(rackID, projectID, productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.rackHolds[rackHoldKey{rackID, projectID, productID}].Held
}

// Seed é o formato do arquivo de dados iniciais do modo memória.
type Seed struct {
	Products []domain.Product `json:"products"`
	Projects []struct {
		domain.Project
		Racks   []domain.Rack     `json:"rackList"`
		Members map[string]string `json:"members"`
	} `json:"projects"`
	Users []domain.User `json:"users"`
}

// LoadSeed carrega produtos, projetos (com racks e membros) e usuários de um JSON.
func (s *Store) LoadSeed(r io.Reader) error {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return fmt.Errorf("falha ao ler seed: %w", err)
	}

	for _, u := range seed.Users {
		s.AddUser(u)
	}
	for _, p := range seed.Products {
		s.AddProduct(p)
	}
	for _, p := range seed.Projects {
		project := p.Project
		project.RackIDs = nil
		s.AddProject(project)
		for _, rack := range p.Racks {
			rack.ProjectID = project.ID
			if err := s.AddRack(rack); err != nil {
				return err
			}
		}
		for userID, role := range p.Members {
			s.AddMember(project.ID, userID, domain.MemberRole(role))
		}
	}
	return nil
}
