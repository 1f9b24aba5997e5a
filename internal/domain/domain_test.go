package domain_test

import (
	"encoding/json"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gorack/internal/domain"
)

func ptr(v float64) *float64 { return &v }

func TestEffectiveApprovedQuantity(t *testing.T) {
	cases := []struct {
		name     string
		supplied *float64
		want     int
	}{
		{"ausente aprova tudo", nil, 10},
		{"parcial", ptr(4), 4},
		{"fracionado é truncado", ptr(4.9), 4},
		{"acima do solicitado é limitado", ptr(25), 10},
		{"zero aprova tudo", ptr(0), 10},
		{"negativo aprova tudo", ptr(-3), 10},
		{"menor que um aprova tudo", ptr(0.5), 10},
		{"NaN aprova tudo", ptr(math.NaN()), 10},
		{"infinito aprova tudo", ptr(math.Inf(1)), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.EffectiveApprovedQuantity(10, tc.supplied))
		})
	}
}

func TestReleaseAndAvailabilityPolicies(t *testing.T) {
	assert.Equal(t, 6, domain.ReleaseOnApproval(10, 4))
	assert.Equal(t, 0, domain.ReleaseOnApproval(10, 10))

	assert.Equal(t, 3, domain.ClampRelease(5, 3))
	assert.Equal(t, 5, domain.ClampRelease(5, 8))
	assert.Equal(t, 0, domain.ClampRelease(5, 0))

	assert.Equal(t, 20, domain.AvailableForTransfer(20, 15, false))
	assert.Equal(t, 5, domain.AvailableForTransfer(20, 15, true))
	assert.Equal(t, 0, domain.AvailableForTransfer(10, 15, true))
}

func TestTransferStatus_StateMachine(t *testing.T) {
	all := []domain.TransferStatus{domain.StatusPending, domain.StatusApproved, domain.StatusRejected, domain.StatusCompleted}
	allowed := map[[2]domain.TransferStatus]bool{
		{domain.StatusPending, domain.StatusApproved}:   true,
		{domain.StatusPending, domain.StatusRejected}:   true,
		{domain.StatusApproved, domain.StatusCompleted}: true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]domain.TransferStatus{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, domain.StatusRejected.IsTerminal())
	assert.True(t, domain.StatusCompleted.IsTerminal())
	assert.False(t, domain.StatusApproved.IsTerminal())
}

func TestProjectRef(t *testing.T) {
	ref, err := domain.ParseProjectRef("external")
	require.NoError(t, err)
	assert.True(t, ref.IsExternal())

	_, err = domain.ParseProjectRef("  ")
	assert.Error(t, err)

	known := domain.KnownProject("p-1")
	id, ok := known.ID()
	assert.True(t, ok)
	assert.Equal(t, "p-1", id)

	body, err := json.Marshal(struct {
		From domain.ProjectRef `json:"from"`
		To   domain.ProjectRef `json:"to"`
	}{known, domain.External()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"p-1","to":"EXTERNAL"}`, string(body))

	v, err := domain.External().Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	var scanned domain.ProjectRef
	require.NoError(t, scanned.Scan([]byte("p-9")))
	assert.True(t, scanned.Equal(domain.KnownProject("p-9")))
	require.NoError(t, scanned.Scan(nil))
	assert.True(t, scanned.IsExternal())
}

func TestProductAllowsProject(t *testing.T) {
	product := domain.Product{ID: "x", IncludedProjects: []string{"p1"}}

	assert.True(t, product.AllowsProject(domain.Project{ID: "p1"}))
	assert.False(t, product.AllowsProject(domain.Project{ID: "p2"}))
	assert.True(t, product.AllowsProject(domain.Project{ID: "p2", IsLobby: true}))
	assert.True(t, domain.Product{ID: "y"}.AllowsProject(domain.Project{ID: "p2"}))
}

func TestNewTransferID(t *testing.T) {
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	id := domain.NewTransferID(now)
	assert.Regexp(t, regexp.MustCompile(`^TRF-20260304050607-[0-9A-F]{4}$`), id)
}

func TestNewStockSummary_Unassigned(t *testing.T) {
	s := domain.NewStockSummary("p1", "x", 30, 10, []domain.RackHold{{RackID: "r1", Held: 4}, {RackID: "r2", Held: 2}})

	assert.Equal(t, 6, s.RackHeld)
	assert.Equal(t, 4, s.Unassigned)
	assert.Equal(t, 20, s.Available)
}

func TestTransfer_MoveQuantityAndReserves(t *testing.T) {
	approved := 3
	tr := domain.Transfer{Type: domain.TransferOut, FromProject: domain.KnownProject("p1"), Quantity: 5}
	assert.Equal(t, 5, tr.MoveQuantity())
	assert.True(t, tr.ReservesStock())

	tr.Approved = &approved
	assert.Equal(t, 3, tr.MoveQuantity())

	tr.FromProject = domain.External()
	assert.False(t, tr.ReservesStock())
	tr.FromProject = domain.KnownProject("p1")
	tr.Type = domain.TransferIn
	assert.False(t, tr.ReservesStock())
}
