// Package domains provides the static catalog of functional permission
// domains. Each domain names a dashboard area and the minimum role required
// to use it. The catalog is built once at process start and is immutable
// afterwards; concurrent readers rely on that stability.
package domains

import (
	"errors"
	"fmt"
	"sort"

	"github.com/canopyhq/canopy/pkg/roles"
)

// ErrUnknownDomain indicates a domain id that is not registered in the
// catalog. This is a configuration bug and must never be reported as an
// ordinary permission denial.
var ErrUnknownDomain = errors.New("unknown permission domain")

// Domain represents one gated functional area of the dashboard
type Domain struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	MinRole     roles.Role `json:"min_role"`
}

// Catalog is an immutable registry of permission domains
type Catalog struct {
	byID    map[string]Domain
	ordered []Domain
}

// NewCatalog builds a catalog from the given domains. Duplicate ids and
// invalid minimum roles are rejected at load time so misconfiguration
// surfaces at startup, not per-request.
func NewCatalog(domains []Domain) (*Catalog, error) {
	byID := make(map[string]Domain, len(domains))
	for _, d := range domains {
		if d.ID == "" {
			return nil, fmt.Errorf("domain %q has an empty id", d.Name)
		}
		if !roles.Valid(d.MinRole) {
			return nil, fmt.Errorf("domain %q has invalid min role %q", d.ID, d.MinRole)
		}
		if _, dup := byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate domain id %q", d.ID)
		}
		byID[d.ID] = d
	}

	ordered := make([]Domain, 0, len(byID))
	for _, d := range byID {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	return &Catalog{byID: byID, ordered: ordered}, nil
}

// NewBuiltInCatalog builds the catalog from the built-in domain registry.
func NewBuiltInCatalog() (*Catalog, error) {
	return NewCatalog(BuiltInDomains())
}

// List returns all domains ordered by id. The returned slice is a copy.
func (c *Catalog) List() []Domain {
	out := make([]Domain, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Get returns the domain with the given id.
func (c *Catalog) Get(id string) (Domain, error) {
	d, ok := c.byID[id]
	if !ok {
		return Domain{}, fmt.Errorf("%w: %q", ErrUnknownDomain, id)
	}
	return d, nil
}

// HasAccess reports whether role meets the minimum role of the domain.
// An unregistered domain id returns ErrUnknownDomain rather than false so
// configuration mistakes are visible instead of masked as denials.
func (c *Catalog) HasAccess(role roles.Role, domainID string) (bool, error) {
	d, err := c.Get(domainID)
	if err != nil {
		return false, err
	}
	return roles.IsAtLeast(role, d.MinRole), nil
}

// BuiltInDomains returns the built-in domain definitions for the agency
// dashboard.
func BuiltInDomains() []Domain {
	return []Domain{
		{ID: "dashboard", Name: "Dashboard", Description: "Sub-account overview and widgets", MinRole: roles.AccountGuest},
		{ID: "contacts", Name: "Contacts", Description: "Contact records and smart lists", MinRole: roles.AccountUser},
		{ID: "pipelines", Name: "Pipelines", Description: "Opportunity pipelines and kanban board", MinRole: roles.AccountUser},
		{ID: "funnels", Name: "Funnels", Description: "Funnel and landing page builder", MinRole: roles.AccountUser},
		{ID: "campaigns", Name: "Campaigns", Description: "Outbound campaign sequences", MinRole: roles.AccountUser},
		{ID: "scheduling", Name: "Scheduling", Description: "Calendars and appointment booking", MinRole: roles.AccountGuest},
		{ID: "reputation", Name: "Reputation", Description: "Review requests and monitoring", MinRole: roles.AccountUser},
		{ID: "reporting", Name: "Reporting", Description: "Attribution and call reporting", MinRole: roles.AgencyAdmin},
		{ID: "media", Name: "Media Library", Description: "Shared file and media storage", MinRole: roles.AccountUser},
		{ID: "staff", Name: "Staff", Description: "Team management and role assignment", MinRole: roles.AgencyAdmin},
		{ID: "billing", Name: "Billing", Description: "Subscription and payment settings", MinRole: roles.AgencyAdmin},
		{ID: "settings", Name: "Agency Settings", Description: "Agency-wide configuration", MinRole: roles.AgencyOwner},
	}
}
