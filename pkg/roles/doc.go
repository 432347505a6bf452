// Package roles defines the fixed role hierarchy used across the Canopy
// authorization engine.
//
// # Overview
//
// Canopy has a closed set of four roles forming a strict total order:
//
//	AgencyOwner   (level 4) - full control of the agency, ownership transfer
//	AgencyAdmin   (level 3) - agency staff, manages accounts below admin level
//	AccountUser   (level 2) - works inside assigned sub-accounts
//	AccountGuest  (level 1) - read-mostly access to assigned sub-accounts
//
// The set and its ordering are compile-time constants. They are never loaded
// from runtime data: reordering roles at runtime would silently change the
// meaning of every privilege already granted, so the hierarchy is deliberately
// not configurable.
//
// # Scope kinds
//
// Each role carries a scope kind. Agency-scope roles (AgencyOwner,
// AgencyAdmin) re-home an account to the agency when assigned through an
// invitation. Sub-account-scope roles (AccountUser, AccountGuest) only grant
// access to a single sub-account and never touch the account's existing role
// or home agency.
package roles
