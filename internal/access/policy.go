/*
 * Copyright (c) 2026 Francesco Biribo'
 *
 * Permission to use, copy, modify, and distribute this software for any purpose with or without fee is hereby granted, provided that the above copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package access

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

// Capability is an (object, action) pair checked against the policy.
type Capability struct {
	Object string
	Action string
}

func (c Capability) String() string { return c.Object + ":" + c.Action }

var (
	DeleteMessageRange = Capability{"messages", "delete-range"}
	PurgeMessages      = Capability{"messages", "purge"}
	SeedData           = Capability{"data", "seed"}
)

const adminRole = "admin"

const policyModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`

// Authorizer answers whether subject holds a capability.
type Authorizer interface {
	Can(subject string, c Capability) bool
}

// Policy is a casbin enforcer where every configured administrator holds the admin role,
// and the admin role holds every maintenance capability.
type Policy struct {
	enforcer *casbin.Enforcer
}

func NewPolicy(admins []string) (*Policy, error) {
	m, err := model.NewModelFromString(policyModel)
	if err != nil {
		return nil, fmt.Errorf("invalid access model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	for _, c := range []Capability{DeleteMessageRange, PurgeMessages, SeedData} {
		if _, err := e.AddPolicy(adminRole, c.Object, c.Action); err != nil {
			return nil, err
		}
	}
	for _, admin := range admins {
		admin = strings.TrimSpace(admin)
		if admin == "" {
			continue
		}
		if _, err := e.AddGroupingPolicy(admin, adminRole); err != nil {
			return nil, err
		}
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Can(subject string, c Capability) bool {
	if subject == "" || subject == adminRole {
		return false
	}
	ok, err := p.enforcer.Enforce(subject, c.Object, c.Action)
	return err == nil && ok
}
