package notification

import (
	"context"
	"sort"

	"gorack/internal/domain"
)

// Resolver monta os destinatários de cada evento a partir do diretório de usuários.
type Resolver struct {
	directory domain.UserDirectory
}

func NewResolver(directory domain.UserDirectory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve aplica as regras por evento:
//   - created: administradores;
//   - approved: solicitante; responsáveis pela próxima etapa em ActionRequired;
//     administradores, gerentes de origem e destino e solicitante em Informed;
//   - rejected: solicitante;
//   - completed: solicitante e administradores.
func (r *Resolver) Resolve(ctx context.Context, event domain.EmailEvent, t domain.Transfer) (domain.Recipients, error) {
	switch event {
	case domain.EmailEventCreated:
		admins, err := r.directory.FindAdminEmails(ctx)
		if err != nil {
			return domain.Recipients{}, err
		}
		return domain.Recipients{To: unique(admins)}, nil

	case domain.EmailEventRejected:
		requester, err := r.requester(ctx, t)
		if err != nil {
			return domain.Recipients{}, err
		}
		return domain.Recipients{To: requester}, nil

	case domain.EmailEventCompleted:
		requester, err := r.requester(ctx, t)
		if err != nil {
			return domain.Recipients{}, err
		}
		admins, err := r.directory.FindAdminEmails(ctx)
		if err != nil {
			return domain.Recipients{}, err
		}
		return domain.Recipients{To: unique(requester, admins)}, nil

	case domain.EmailEventApproved:
		return r.approved(ctx, t)
	}
	return domain.Recipients{}, nil
}

func (r *Resolver) approved(ctx context.Context, t domain.Transfer) (domain.Recipients, error) {
	requester, err := r.requester(ctx, t)
	if err != nil {
		return domain.Recipients{}, err
	}
	admins, err := r.directory.FindAdminEmails(ctx)
	if err != nil {
		return domain.Recipients{}, err
	}
	sourceManagers, err := r.managers(ctx, t.FromProject)
	if err != nil {
		return domain.Recipients{}, err
	}
	destManagers, err := r.managers(ctx, t.ToProject)
	if err != nil {
		return domain.Recipients{}, err
	}
	next, err := r.nextStep(ctx, t, sourceManagers, destManagers)
	if err != nil {
		return domain.Recipients{}, err
	}

	return domain.Recipients{
		To:             requester,
		ActionRequired: next,
		Informed:       unique(admins, sourceManagers, destManagers, requester),
	}, nil
}

// nextStep resolve quem conclui a transferência: gerentes do destino (OUT) ou
// da origem (IN). Sem gerentes, cai para todos os usuários daquele projeto; se
// ele for EXTERNAL, usa o outro lado.
func (r *Resolver) nextStep(ctx context.Context, t domain.Transfer, sourceManagers, destManagers []string) ([]string, error) {
	target, other := t.ToProject, t.FromProject
	primary, secondary := destManagers, sourceManagers
	if t.Type == domain.TransferIn {
		target, other = t.FromProject, t.ToProject
		primary, secondary = sourceManagers, destManagers
	}
	if target.IsExternal() {
		target, primary = other, secondary
	}
	if len(primary) > 0 {
		return unique(primary), nil
	}

	projectID, ok := target.ID()
	if !ok {
		return nil, nil
	}
	users, err := r.directory.FindProjectUserEmails(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return unique(users), nil
}

func (r *Resolver) requester(ctx context.Context, t domain.Transfer) ([]string, error) {
	if t.RequestedBy == "" {
		return nil, nil
	}
	emails, err := r.directory.FindEmailsByIDs(ctx, []string{t.RequestedBy})
	if err != nil {
		return nil, err
	}
	return unique(emails), nil
}

func (r *Resolver) managers(ctx context.Context, ref domain.ProjectRef) ([]string, error) {
	projectID, ok := ref.ID()
	if !ok {
		return nil, nil
	}
	return r.directory.FindProjectManagerEmails(ctx, projectID)
}

// unique junta as listas sem repetição, em ordem alfabética.
func unique(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, email := range list {
			if email == "" {
				continue
			}
			if _, ok := seen[email]; ok {
				continue
			}
			seen[email] = struct{}{}
			out = append(out, email)
		}
	}
	sort.Strings(out)
	return out
}
