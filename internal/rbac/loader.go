// Package rbac enforces route access and capabilities with casbin. Subjects
// are user ids and role names; objects are request paths or
// "/capabilities/<name>".
package rbac

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	ormdriver "github.com/faciam-dev/goquent/orm/driver"
	"github.com/faciam-dev/goquent/orm/query"

	"github.com/faciam-dev/guidecms/internal/domain/capability"
)

// ActUse is the action of capability policies.
const ActUse = "USE"

// CapabilityObject is the policy object of capability c.
func CapabilityObject(c capability.Name) string { return "/capabilities/" + string(c) }

// Policy is one allow rule.
type Policy struct {
	Role   string `db:"role"`
	Path   string `db:"path"`
	Method string `db:"method"`
}

// Defaults is the built-in policy set. Administrators may do anything,
// editors manage pages and read everything, anonymous callers read the
// public API.
var Defaults = []Policy{
	{Role: "admin", Path: "/*", Method: "*"},
	{Role: "editor", Path: "/guide-cms/v1/*", Method: "*"},
	{Role: "editor", Path: "/admin/pages/*", Method: "*"},
	{Role: "editor", Path: "/admin/logout", Method: "POST"},
	{Role: "editor", Path: CapabilityObject(capability.EditPages), Method: ActUse},
	{Role: "editor", Path: CapabilityObject(capability.ReadPrivate), Method: ActUse},
	{Role: "editor", Path: CapabilityObject(capability.UploadMedia), Method: ActUse},
	{Role: capability.AnonymousRole, Path: "/guide-cms/v1/*", Method: "GET"},
	{Role: capability.AnonymousRole, Path: "/guide-cms/v1/auth/login", Method: "POST"},
	{Role: capability.AnonymousRole, Path: "/admin/login", Method: "*"},
	{Role: capability.AnonymousRole, Path: "/openapi.json", Method: "GET"},
	{Role: capability.AnonymousRole, Path: "/openapi.yaml", Method: "GET"},
	{Role: capability.AnonymousRole, Path: "/docs", Method: "GET"},
	{Role: capability.AnonymousRole, Path: "/schemas/*", Method: "GET"},
}

// NewEnforcer builds an enforcer with the keyMatch2 path model and the
// default policies.
func NewEnforcer() (*casbin.Enforcer, error) {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", "g(r.sub, p.sub) && keyMatch2(r.obj, p.obj) && (r.act == p.act || p.act == \"*\")")
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}
	for _, p := range Defaults {
		if _, err := e.AddPolicy(p.Role, p.Path, p.Method); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Load adds the policies stored in the role_policies table.
func Load(ctx context.Context, db *sql.DB, dialect ormdriver.Dialect, tablePrefix string, e *casbin.Enforcer) error {
	if db == nil || e == nil {
		return nil
	}
	var rows []Policy
	err := query.New(db, tablePrefix+"role_policies", dialect).
		Select("role", "path", "method").
		OrderBy("id", "asc").
		WithContext(ctx).
		Get(&rows)
	if err != nil {
		return fmt.Errorf("load role policies: %w", err)
	}
	for _, p := range rows {
		if _, err := e.AddPolicy(p.Role, p.Path, p.Method); err != nil {
			return err
		}
	}
	return nil
}

// Checker answers capability checks from the enforcer.
type Checker struct {
	E *casbin.Enforcer
}

// Can reports whether any subject of p may use c.
func (c Checker) Can(p capability.Principal, name capability.Name) bool {
	return allowed(c.E, p, CapabilityObject(name), ActUse)
}

func allowed(e *casbin.Enforcer, p capability.Principal, obj, act string) bool {
	for _, s := range p.Subjects() {
		if ok, _ := e.Enforce(s, obj, act); ok {
			return true
		}
	}
	return false
}
