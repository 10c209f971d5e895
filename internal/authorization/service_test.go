package authorization

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
	"github.com/smallbiznis/royalty/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestCreatorSeesOnlyOwnEarnings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	creator := obscontext.Actor{ID: "c1", Role: RoleCreator}

	assert.NoError(t, svc.Authorize(ctx, creator, "c1", ObjectEarnings, ActionEarningsView))
	assert.NoError(t, svc.Authorize(ctx, creator, "c1", ObjectWithdrawal, ActionWithdrawalCreate))
	assert.ErrorIs(t, svc.Authorize(ctx, creator, "c2", ObjectEarnings, ActionEarningsView), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, creator, "", ObjectPlatformOverview, ActionPlatformOverviewView), ErrForbidden)
}

func TestAdminReadsAnyCreatorButCannotWithdraw(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	admin := obscontext.Actor{ID: "a1", Role: "ADMIN"}

	assert.NoError(t, svc.Authorize(ctx, admin, "c2", ObjectEarnings, ActionEarningsExport))
	assert.NoError(t, svc.Authorize(ctx, admin, "", ObjectPlatformOverview, ActionPlatformOverviewView))
	assert.ErrorIs(t, svc.Authorize(ctx, admin, "c2", ObjectWithdrawal, ActionWithdrawalCreate), ErrForbidden)
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, obscontext.Actor{ID: "x", Role: RoleAdmin}, "", ObjectPlatformOverview, ActionPlatformOverviewView))
	assert.ErrorIs(t,
		svc.Authorize(ctx, obscontext.Actor{ID: "x", Role: RoleCreator}, "", ObjectPlatformOverview, ActionPlatformOverviewView),
		ErrForbidden,
	)
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{}, "c1", ObjectEarnings, ActionEarningsView), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{ID: "c1", Role: "guest"}, "c1", ObjectEarnings, ActionEarningsView), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{ID: "c1", Role: RoleCreator}, "c1", "", ActionEarningsView), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, obscontext.Actor{ID: "c1", Role: RoleCreator}, "c1", ObjectEarnings, " "), ErrInvalidAction)
}

func TestSeedPoliciesIsIdempotent(t *testing.T) {
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	_, err = NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 10)
}
