package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"slices"
	"strings"
)

const (
	// RoleInventoryReader may ask questions and read reports.
	RoleInventoryReader = "inventory_reader"
	// RoleVoiceAgent is held by the voice platform delivering call events.
	RoleVoiceAgent = "voice_agent"
	// RoleOperator may place negotiation calls and export snapshots.
	RoleOperator = "operator"
)

var knownRoles = []string{RoleInventoryReader, RoleOperator, RoleVoiceAgent}

type Identity struct {
	TenantID string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

func (i Identity) HasAnyRole(roles ...string) bool {
	for _, role := range roles {
		if i.HasRole(role) {
			return true
		}
	}
	return false
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type staticKey struct {
	key      []byte
	identity Identity
}

// StaticAPIKeyValidator checks keys configured as "key:tenant:role|role,...".
type StaticAPIKeyValidator struct {
	keys []staticKey
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	seen := map[string]bool{}
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:tenant:role|role", entry)
		}
		key := strings.TrimSpace(parts[0])
		tenant := strings.TrimSpace(parts[1])
		if key == "" || tenant == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/tenant", entry)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate static key for tenant %q", tenant)
		}
		seen[key] = true

		var roles []string
		for _, role := range strings.Split(parts[2], "|") {
			role = strings.TrimSpace(role)
			if role == "" {
				continue
			}
			if !slices.Contains(knownRoles, role) {
				return nil, fmt.Errorf("invalid static key entry %q: unknown role %q", entry, role)
			}
			roles = append(roles, role)
		}
		if len(roles) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one role is required", entry)
		}
		slices.Sort(roles)
		validator.keys = append(validator.keys, staticKey{key: []byte(key), identity: Identity{TenantID: tenant, Roles: slices.Compact(roles)}})
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	candidate := []byte(apiKey)
	for _, entry := range v.keys {
		if subtle.ConstantTimeCompare(entry.key, candidate) == 1 {
			return entry.identity, true
		}
	}
	return Identity{}, false
}
