package handler

import (
	"context"
	"net/http"
	"slices"

	"github.com/casbin/casbin/v2"

	"github.com/faciam-dev/guidecms/internal/auth"
	"github.com/faciam-dev/guidecms/internal/domain/capability"
	hh "github.com/faciam-dev/guidecms/internal/huma"
)

// RBACHandler exposes the effective policies, the user list and the
// capabilities of the caller.
type RBACHandler struct {
	Enforcer *casbin.Enforcer
	Users    *auth.UserRepo
	Checker  capability.Checker
}

// Policy is one allow rule of a role.
type Policy struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

// Role groups the policies granted to one subject.
type Role struct {
	Name     string   `json:"name"`
	Policies []Policy `json:"policies"`
}

type listRolesOutput struct{ Body []Role }

type listUsersOutput struct{ Body []auth.User }

type capsOutput struct {
	Body struct {
		Subject      string          `json:"sub"`
		Roles        []string        `json:"roles"`
		Capabilities map[string]bool `json:"capabilities"`
	}
}

func RegisterRBAC(api hh.API, h *RBACHandler) {
	hh.Register(api, hh.Operation{
		OperationID: "listRoles",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/roles",
		Summary:     "List roles and their policies",
		Tags:        []string{"RBAC"},
	}, h.listRoles)

	hh.Register(api, hh.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/users",
		Summary:     "List users",
		Tags:        []string{"RBAC"},
	}, h.listUsers)

	hh.Register(api, hh.Operation{
		OperationID: "getCapabilities",
		Method:      http.MethodGet,
		Path:        "/guide-cms/v1/auth/capabilities",
		Summary:     "Capabilities of the current user",
		Tags:        []string{"Auth"},
	}, h.capabilities)
}

func (h *RBACHandler) listRoles(ctx context.Context, _ *struct{}) (*listRolesOutput, error) {
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.ManageFields); err != nil {
		return nil, hh.FromError(err, "forbidden")
	}
	rules, err := h.Enforcer.GetPolicy()
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	byRole := map[string][]Policy{}
	var names []string
	for _, r := range rules {
		if len(r) < 3 {
			continue
		}
		if _, ok := byRole[r[0]]; !ok {
			names = append(names, r[0])
		}
		byRole[r[0]] = append(byRole[r[0]], Policy{Path: r[1], Method: r[2]})
	}
	slices.Sort(names)
	out := make([]Role, 0, len(names))
	for _, n := range names {
		out = append(out, Role{Name: n, Policies: byRole[n]})
	}
	return &listRolesOutput{Body: out}, nil
}

func (h *RBACHandler) listUsers(ctx context.Context, _ *struct{}) (*listUsersOutput, error) {
	if err := capability.Require(h.Checker, capability.FromContext(ctx), capability.ManageFields); err != nil {
		return nil, hh.FromError(err, "forbidden")
	}
	users, err := h.Users.List(ctx)
	if err != nil {
		return nil, hh.FromError(err, "list_failed")
	}
	if users == nil {
		users = []auth.User{}
	}
	return &listUsersOutput{Body: users}, nil
}

func (h *RBACHandler) capabilities(ctx context.Context, _ *struct{}) (*capsOutput, error) {
	p := capability.FromContext(ctx)
	out := &capsOutput{}
	out.Body.Subject = p.Subject
	out.Body.Roles = p.Roles
	out.Body.Capabilities = make(map[string]bool, len(capability.All))
	for _, c := range capability.All {
		out.Body.Capabilities[string(c)] = capability.Require(h.Checker, p, c) == nil
	}
	return out, nil
}
