package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/principal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectInvoice    = "invoice"
	ObjectInventory  = "inventory"
	ObjectRedemption = "point_redemption"
	ObjectCustomer   = "customer"
	ObjectAuditLog   = "audit_log"
)

const (
	ActionInvoiceCreateOnline  = "invoice.create_online"
	ActionInvoiceCreateOffline = "invoice.create_offline"
	ActionInvoiceView          = "invoice.view"
	ActionInvoiceList          = "invoice.list"
	ActionInvoiceListPending   = "invoice.list_pending"
	ActionInvoiceUpdate        = "invoice.update"
	ActionInvoiceCancel        = "invoice.cancel"
	ActionInvoiceDelivery      = "invoice.delivery_status"
	ActionInvoiceFeedback      = "invoice.feedback"
	ActionInvoiceChangeAddress = "invoice.change_address"
	ActionInventoryView        = "inventory.view"
	ActionInventoryManage      = "inventory.manage"
	ActionRedemptionView       = "point_redemption.view"
	ActionRedemptionManage     = "point_redemption.manage"
	ActionCustomerView         = "customer.view"
	ActionCustomerCreate       = "customer.create"
	ActionAuditLogView         = "audit_log.view"
)

const (
	actionAuthorizationDenied = "authorization.denied"
	targetTypeAuthorization   = "authorization"
)

const (
	roleAnonymous = "role:anonymous"
	roleCustomer  = "role:customer"
	roleStaff     = "role:staff"
	roleManager   = "role:manager"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
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
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, p principal.Principal, object, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := subjectFor(p)
	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, p, object, action)
		return ErrForbidden
	}
	return nil
}

func subjectFor(p principal.Principal) string {
	switch {
	case p.IsAnonymous():
		return roleAnonymous
	case p.Kind == principal.KindManager:
		return roleManager
	case p.Kind == principal.KindStaff:
		return roleStaff
	case p.IsCustomer():
		return roleCustomer
	default:
		return roleAnonymous
	}
}

func (s *ServiceImpl) auditDenied(ctx context.Context, p principal.Principal, object, action string) {
	s.log.Info("capability denied",
		zap.String("actor", p.String()),
		zap.String("object", object),
		zap.String("action", action),
	)
	if s.auditSvc == nil || p.IsAnonymous() {
		return
	}
	_ = s.auditSvc.AuditLog(ctx, p, actionAuthorizationDenied, targetTypeAuthorization, object, map[string]any{
		"object":  object,
		"action":  action,
		"subject": subjectFor(p),
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{roleAnonymous, ObjectInvoice, ActionInvoiceCreateOnline},
		{roleAnonymous, ObjectInventory, ActionInventoryView},
		{roleAnonymous, ObjectRedemption, ActionRedemptionView},

		{roleCustomer, ObjectInvoice, ActionInvoiceCreateOnline},
		{roleCustomer, ObjectInvoice, ActionInvoiceView},
		{roleCustomer, ObjectInvoice, ActionInvoiceList},
		{roleCustomer, ObjectInvoice, ActionInvoiceCancel},
		{roleCustomer, ObjectInvoice, ActionInvoiceFeedback},
		{roleCustomer, ObjectInvoice, ActionInvoiceChangeAddress},
		{roleCustomer, ObjectInventory, ActionInventoryView},
		{roleCustomer, ObjectRedemption, ActionRedemptionView},

		{roleStaff, ObjectInvoice, ActionInvoiceCreateOffline},
		{roleStaff, ObjectInvoice, ActionInvoiceView},
		{roleStaff, ObjectInvoice, ActionInvoiceList},
		{roleStaff, ObjectInvoice, ActionInvoiceListPending},
		{roleStaff, ObjectInvoice, ActionInvoiceUpdate},
		{roleStaff, ObjectInvoice, ActionInvoiceCancel},
		{roleStaff, ObjectInvoice, ActionInvoiceDelivery},
		{roleStaff, ObjectInventory, ActionInventoryView},
		{roleStaff, ObjectRedemption, ActionRedemptionView},
		{roleStaff, ObjectCustomer, ActionCustomerView},
		{roleStaff, ObjectCustomer, ActionCustomerCreate},

		{roleManager, ObjectInventory, ActionInventoryManage},
		{roleManager, ObjectRedemption, ActionRedemptionManage},
		{roleManager, ObjectAuditLog, ActionAuditLogView},
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

	has, err := enforcer.HasGroupingPolicy(roleManager, roleStaff)
	if err != nil {
		return err
	}
	if !has {
		if _, err := enforcer.AddGroupingPolicy(roleManager, roleStaff); err != nil {
			return err
		}
	}
	return nil
}
