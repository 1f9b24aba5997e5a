package domain

import "time"

// Product é a entrada de catálogo que interessa ao motor de transferências.
type Product struct {
	ID   string `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
	// IncludedProjects restringe os projetos elegíveis; vazio libera todos.
	IncludedProjects []string  `json:"includedProjects,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// AllowsProject aplica a allow-list do produto. Projetos Lobby sempre passam.
func (p Product) AllowsProject(project Project) bool {
	if len(p.IncludedProjects) == 0 || project.IsLobby {
		return true
	}
	for _, id := range p.IncludedProjects {
		if id == project.ID {
			return true
		}
	}
	return false
}

// Project é um site de armazenagem dono de racks.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsLobby   bool      `json:"isLobby"`
	RackIDs   []string  `json:"racks"`
	CreatedAt time.Time `json:"created_at"`
}

// HasRack reporta se o rack pertence ao projeto.
func (p Project) HasRack(rackID string) bool {
	for _, id := range p.RackIDs {
		if id == rackID {
			return true
		}
	}
	return false
}

// Rack pertence a exatamente um projeto e guarda o estoque físico por produto.
type Rack struct {
	ID        string        `json:"id"`
	ProjectID string        `json:"projectId"`
	Number    string        `json:"rackNumber"`
	Products  []RackProduct `json:"products"`
	CreatedAt time.Time     `json:"created_at"`
}

// RackProduct é o par (produto, estoque em mãos); único por produto dentro do rack.
type RackProduct struct {
	ProductID string `json:"productId"`
	Stock     int    `json:"stock"`
}

// StockOf retorna o estoque do produto no rack (0 se não houver entrada).
func (r Rack) StockOf(productID string) int {
	for _, p := range r.Products {
		if p.ProductID == productID {
			return p.Stock
		}
	}
	return 0
}

// UserRole é o papel do usuário, já resolvido pela autenticação.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleManager UserRole = "manager"
	RoleUser    UserRole = "user"
)

// User é a entrada do diretório usada para resolver destinatários.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email"`
	Role  UserRole `json:"role"`
}

// MemberRole é o papel de um usuário dentro de um projeto.
type MemberRole string

const (
	MemberManager MemberRole = "manager"
	MemberUser    MemberRole = "user"
)

// Actor é quem executa uma etapa do fluxo (vem das claims do token).
type Actor struct {
	ID   string   `json:"id" validate:"required"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}
