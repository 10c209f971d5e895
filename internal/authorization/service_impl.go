package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	obscontext "github.com/smallbiznis/royalty/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

const (
	ObjectEarnings         = "earnings"
	ObjectWithdrawal       = "withdrawal"
	ObjectPlatformOverview = "platform_overview"
)

const (
	ActionEarningsView   = "earnings.view"
	ActionEarningsExport = "earnings.export"

	ActionWithdrawalView   = "withdrawal.view"
	ActionWithdrawalQuote  = "withdrawal.quote"
	ActionWithdrawalCreate = "withdrawal.create"

	ActionPlatformOverviewView = "platform_overview.view"
)

const (
	scopeOwn = "own"
	scopeAny = "any"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor obscontext.Actor, creatorID string, object string, action string) error {
	actorID := strings.TrimSpace(actor.ID)
	if actorID == "" {
		return ErrInvalidActor
	}
	role := strings.ToLower(strings.TrimSpace(actor.Role))
	if role != RoleCreator && role != RoleAdmin {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(role, actorID)
	if err := s.ensureGrouping(subject, "role:"+role); err != nil {
		return err
	}

	owner := ""
	if id := strings.TrimSpace(creatorID); id != "" {
		owner = subjectFor(RoleCreator, id)
	}

	allowed, err := s.enforcer.Enforce(subject, owner, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("creator_id", creatorID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func subjectFor(role, id string) string {
	return fmt.Sprintf("%s:%s", role, id)
}

// ensureGrouping binds subject to exactly one role.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Creators only see and withdraw their own earnings
		{"role:creator", ObjectEarnings, ActionEarningsView, scopeOwn},
		{"role:creator", ObjectEarnings, ActionEarningsExport, scopeOwn},
		{"role:creator", ObjectWithdrawal, ActionWithdrawalView, scopeOwn},
		{"role:creator", ObjectWithdrawal, ActionWithdrawalQuote, scopeOwn},
		{"role:creator", ObjectWithdrawal, ActionWithdrawalCreate, scopeOwn},

		// Admins read across creators but never withdraw for them
		{"role:admin", ObjectEarnings, ActionEarningsView, scopeAny},
		{"role:admin", ObjectEarnings, ActionEarningsExport, scopeAny},
		{"role:admin", ObjectWithdrawal, ActionWithdrawalView, scopeAny},
		{"role:admin", ObjectWithdrawal, ActionWithdrawalQuote, scopeAny},
		{"role:admin", ObjectPlatformOverview, ActionPlatformOverviewView, scopeAny},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
