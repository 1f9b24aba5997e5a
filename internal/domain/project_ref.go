package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// ExternalProjectLiteral é a forma textual de uma contraparte fora do sistema.
// Ela só existe na fronteira JSON; no banco a contraparte externa é NULL.
const ExternalProjectLiteral = "EXTERNAL"

// ProjectRef identifica a origem ou o destino de uma transferência:
// um projeto conhecido ou a contraparte externa. O valor zero é External.
type ProjectRef struct {
	id string
}

// External retorna a referência para a contraparte externa.
func External() ProjectRef { return ProjectRef{} }

// KnownProject referencia um projeto cadastrado.
func KnownProject(id string) ProjectRef { return ProjectRef{id: id} }

// ParseProjectRef interpreta o valor recebido na API. "EXTERNAL" (sem diferenciar
// maiúsculas) vira External; string vazia é inválida.
func ParseProjectRef(raw string) (ProjectRef, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ProjectRef{}, fmt.Errorf("referência de projeto vazia")
	}
	if strings.EqualFold(v, ExternalProjectLiteral) {
		return External(), nil
	}
	return KnownProject(v), nil
}

func (r ProjectRef) IsExternal() bool { return r.id == "" }

// ID retorna o id do projeto e false quando a referência é externa.
func (r ProjectRef) ID() (string, bool) {
	return r.id, r.id != ""
}

func (r ProjectRef) String() string {
	if r.IsExternal() {
		return ExternalProjectLiteral
	}
	return r.id
}

func (r ProjectRef) Equal(other ProjectRef) bool { return r.id == other.id }

func (r ProjectRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *ProjectRef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("referência de projeto deve ser string: %w", err)
	}
	ref, err := ParseProjectRef(raw)
	if err != nil {
		return err
	}
	*r = ref
	return nil
}

// Value grava NULL para External.
func (r ProjectRef) Value() (driver.Value, error) {
	if r.IsExternal() {
		return nil, nil
	}
	return r.id, nil
}

func (r *ProjectRef) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = External()
	case string:
		*r = KnownProject(v)
	case []byte:
		*r = KnownProject(string(v))
	default:
		return fmt.Errorf("tipo inesperado para ProjectRef: %T", src)
	}
	return nil
}
