// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"github.com/oklog/ulid/v2"
)

// Validator holds the pure validation and derivation logic for one entity
// kind. All methods are side-effect free and reentrant; callers feed them
// fresh data on every call.
//
// The per-kind behavior (which constraint kinds and data types are allowed)
// is carried as data in the KindSpec rather than as separate types per kind.
type Validator struct {
	spec    KindSpec
	plugins PluginRegistry
}

// NewValidator creates a validator for the given kind. The plugin registry
// resolves UsesPlugin rules; it must not be nil.
func NewValidator(kind EntityKind, plugins PluginRegistry) (*Validator, error) {
	spec, err := SpecFor(kind)
	if err != nil {
		return nil, err
	}
	return &Validator{spec: spec, plugins: plugins}, nil
}

// NewAssetValidator creates the validator for Asset types.
func NewAssetValidator(plugins PluginRegistry) *Validator {
	return mustValidator(KindAsset, plugins)
}

// NewSubjectValidator creates the validator for Subject types.
func NewSubjectValidator(plugins PluginRegistry) *Validator {
	return mustValidator(KindSubject, plugins)
}

// NewFrameValidator creates the validator for Frame types.
func NewFrameValidator(plugins PluginRegistry) *Validator {
	return mustValidator(KindFrame, plugins)
}

// NewCollectionValidator creates the validator for Collection types.
func NewCollectionValidator(plugins PluginRegistry) *Validator {
	return mustValidator(KindCollection, plugins)
}

func mustValidator(kind EntityKind, plugins PluginRegistry) *Validator {
	v, err := NewValidator(kind, plugins)
	if err != nil {
		panic("validator for known kind: " + err.Error())
	}
	return v
}

// Kind returns the entity kind this validator serves.
func (v *Validator) Kind() EntityKind {
	return v.spec.Kind
}

// IsValidConstraint checks a single constraint syntactically against the
// kind's allowlists. MustBeDefined rules must reference a HasProperty key
// present in the same proposed batch.
func (v *Validator) IsValidConstraint(c Constraint, batch []Constraint) Status {
	if err := c.Kind.Validate(); err != nil {
		return Errorf("unknown constraint kind %q", c.Kind)
	}
	if !v.spec.AllowsConstraint(c.Kind) {
		return Errorf("constraint kind %q is not allowed for %s types", c.Kind, v.spec.Kind)
	}
	switch c.Kind {
	case ConstraintHasProperty:
		if c.Param1 == "" {
			return Errorf("property key cannot be empty")
		}
		dataType := PropertyDataType(c.Param2)
		if err := dataType.Validate(); err != nil {
			return Errorf("unknown data type %q for property %q", c.Param2, c.Param1)
		}
		if !v.spec.AllowsDataType(dataType) {
			return Errorf("data type %q is not allowed for %s types", c.Param2, v.spec.Kind)
		}
	case ConstraintMustBeDefined:
		if c.Param1 == "" {
			return Errorf("property key cannot be empty")
		}
		partner, ok := findHasProperty(batch, c.Param1)
		if !ok {
			return Errorf("no HasProperty constraint declares key %q", c.Param1)
		}
		if status := PropertyDataType(partner.Param2).CheckValue(c.Param2); !status.OK() {
			return Errorf("default for property %q: %s", c.Param1, status.Message())
		}
	case ConstraintCanContain:
		if c.Param1 == "" {
			return Errorf("child type value cannot be empty")
		}
	case ConstraintUsesPlugin:
		if _, ok := v.plugins.RequiredProperties(c.Param1); !ok {
			return Errorf("unknown plugin %q", c.Param1)
		}
	}
	return Ok()
}

// IsConstraintModel verifies that a full constraint set forms a consistent
// model. Checks run in a fixed order and the first violation wins:
// duplicates, then orphaned or multiple MustBeDefined, then incomplete
// plugins. A type may only be activated when its latest version passes this.
func (v *Validator) IsConstraintModel(cs []Constraint) Status {
	ordered := sortConstraintsByID(cs)

	// 1. Duplicates: same (kind, param1, param2), and duplicate property keys.
	seenRules := make(map[string]struct{}, len(ordered))
	declaredTypes := make(map[string]PropertyDataType, len(ordered))
	for _, c := range ordered {
		if _, ok := seenRules[c.RuleKey()]; ok {
			return Errorf("duplicate %s constraint (%q, %q)", c.Kind, c.Param1, c.Param2)
		}
		seenRules[c.RuleKey()] = struct{}{}
		if c.Kind == ConstraintHasProperty {
			if _, ok := declaredTypes[c.Param1]; ok {
				return Errorf("property key %q is declared more than once", c.Param1)
			}
			declaredTypes[c.Param1] = PropertyDataType(c.Param2)
		}
	}

	// 2. MustBeDefined: each references an existing HasProperty key, at most
	// one per key, with a default that conforms to the declared data type.
	defaulted := make(map[string]struct{})
	for _, c := range ordered {
		if c.Kind != ConstraintMustBeDefined {
			continue
		}
		dataType, ok := declaredTypes[c.Param1]
		if !ok {
			return Errorf("MustBeDefined references undeclared property key %q", c.Param1)
		}
		if _, ok := defaulted[c.Param1]; ok {
			return Errorf("property key %q has more than one MustBeDefined constraint", c.Param1)
		}
		defaulted[c.Param1] = struct{}{}
		if status := dataType.CheckValue(c.Param2); !status.OK() {
			return Errorf("default for property %q: %s", c.Param1, status.Message())
		}
	}

	// 3. Complete plugins: every UsesPlugin has its full property bundle.
	return v.hasCompletePlugins(ordered)
}

// hasCompletePlugins verifies that every UsesPlugin rule has all of its
// plugin's required properties present with the required data types.
func (v *Validator) hasCompletePlugins(cs []Constraint) Status {
	declared := make(map[string]PropertyDataType)
	for _, c := range cs {
		if c.Kind == ConstraintHasProperty {
			declared[c.Param1] = PropertyDataType(c.Param2)
		}
	}
	for _, c := range cs {
		if c.Kind != ConstraintUsesPlugin {
			continue
		}
		required, ok := v.plugins.RequiredProperties(c.Param1)
		if !ok {
			return Errorf("unknown plugin %q", c.Param1)
		}
		for _, p := range required {
			dataType, ok := declared[p.Key]
			if !ok {
				return Errorf("plugin %q requires property %q which is not declared", c.Param1, p.Key)
			}
			if dataType != p.DataType {
				return Errorf("plugin %q requires property %q with data type %q, found %q", c.Param1, p.Key, p.DataType, dataType)
			}
		}
	}
	return Ok()
}

// ApplyConstraint expands a proposed addition into the full set of constraints
// to insert. Adding a UsesPlugin rule synthesizes the plugin's bundled
// HasProperty constraints (and MustBeDefined rules for bundle defaults) with
// fresh ids, so model validation sees the complete post-application state.
func (v *Validator) ApplyConstraint(c Constraint, existing []Constraint) []Constraint {
	additions := []Constraint{c}
	if c.Kind != ConstraintUsesPlugin {
		return additions
	}
	required, ok := v.plugins.RequiredProperties(c.Param1)
	if !ok {
		return additions
	}
	pluginID := c.Param1
	for _, p := range required {
		if hasPropertyKey(existing, p.Key) {
			continue
		}
		additions = append(additions, Constraint{
			ID:            NewULID(),
			Kind:          ConstraintHasProperty,
			Param1:        p.Key,
			Param2:        string(p.DataType),
			ByPlugin:      &pluginID,
			TypeVersionID: c.TypeVersionID,
		})
		if p.Default != "" {
			additions = append(additions, Constraint{
				ID:            NewULID(),
				Kind:          ConstraintMustBeDefined,
				Param1:        p.Key,
				Param2:        p.Default,
				ByPlugin:      &pluginID,
				TypeVersionID: c.TypeVersionID,
			})
		}
	}
	return additions
}

// CanRemoveConstraint checks whether the target may be removed from the set.
// A HasProperty rule still required by an installed plugin cannot go until
// the UsesPlugin rule is removed first.
func (v *Validator) CanRemoveConstraint(target Constraint, all []Constraint) Status {
	if target.Kind != ConstraintHasProperty {
		return Ok()
	}
	for _, c := range all {
		if c.Kind != ConstraintUsesPlugin {
			continue
		}
		required, ok := v.plugins.RequiredProperties(c.Param1)
		if !ok {
			continue
		}
		for _, p := range required {
			if p.Key == target.Param1 {
				return Errorf("property %q is required by plugin %q; remove the plugin constraint first", target.Param1, c.Param1)
			}
		}
	}
	return Ok()
}

// RemoveConstraint computes the set of constraints that must be removed
// together with the target. Removing a HasProperty also removes its
// MustBeDefined partner; removing a UsesPlugin also removes the bundle
// properties that no other installed plugin still requires.
func (v *Validator) RemoveConstraint(target Constraint, all []Constraint) []Constraint {
	switch target.Kind {
	case ConstraintHasProperty:
		removals := []Constraint{target}
		for _, c := range all {
			if c.Kind == ConstraintMustBeDefined && c.Param1 == target.Param1 {
				removals = append(removals, c)
			}
		}
		return removals
	case ConstraintUsesPlugin:
		// Only constraints the plugin itself synthesized are candidates;
		// manually declared properties that happen to satisfy the bundle
		// survive the plugin's removal.
		removals := []Constraint{target}
		stillRequired := v.keysRequiredByOtherPlugins(target, all)
		for _, c := range all {
			if c.ByPlugin == nil || *c.ByPlugin != target.Param1 {
				continue
			}
			if _, shared := stillRequired[c.Param1]; shared {
				continue
			}
			removals = append(removals, c)
		}
		return removals
	default:
		return []Constraint{target}
	}
}

// keysRequiredByOtherPlugins collects property keys still required by
// UsesPlugin rules other than the one being removed.
func (v *Validator) keysRequiredByOtherPlugins(removed Constraint, all []Constraint) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, c := range all {
		if c.Kind != ConstraintUsesPlugin || c.ID == removed.ID {
			continue
		}
		required, ok := v.plugins.RequiredProperties(c.Param1)
		if !ok {
			continue
		}
		for _, p := range required {
			keys[p.Key] = struct{}{}
		}
	}
	return keys
}

// DeriveProperties zips the ordered HasProperty constraints with a
// positionally aligned raw value list into fresh Property rows for a new
// entity. Missing trailing values fall back to the MustBeDefined default or
// the empty string. A raw list longer than the declared property count is
// rejected.
func (v *Validator) DeriveProperties(cs []Constraint, raw []string, parentRef ulid.ULID) ([]Property, Status) {
	declared := HasPropertyConstraints(cs)
	if len(raw) > len(declared) {
		return nil, Errorf("%d values provided but only %d properties are declared", len(raw), len(declared))
	}
	props := make([]Property, 0, len(declared))
	for i, hp := range declared {
		value := DefaultValueFor(cs, hp.Param1)
		if i < len(raw) {
			value = raw[i]
		}
		props = append(props, Property{
			ID:        NewULID(),
			Key:       hp.Param1,
			Value:     value,
			ParentRef: parentRef,
		})
	}
	return props, Ok()
}

// IsModelConfiguration verifies that an entity's properties conform to its
// type version: every declared key has exactly one property whose value
// passes the declared data type's format check.
func (v *Validator) IsModelConfiguration(cs []Constraint, props []Property) Status {
	byKey := make(map[string][]Property, len(props))
	for _, p := range props {
		byKey[p.Key] = append(byKey[p.Key], p)
	}
	for _, hp := range HasPropertyConstraints(cs) {
		matching := byKey[hp.Param1]
		if len(matching) == 0 {
			return Errorf("entity is missing property %q", hp.Param1)
		}
		if len(matching) > 1 {
			return Errorf("entity has %d properties for key %q, expected exactly one", len(matching), hp.Param1)
		}
		if status := PropertyDataType(hp.Param2).CheckValue(matching[0].Value); !status.OK() {
			return Errorf("property %q: %s", hp.Param1, status.Message())
		}
	}
	return Ok()
}

// MapConfigurations overwrites existing property values positionally, using
// the same declaration ordering as DeriveProperties. Used on edit. Returns
// the updated properties; properties beyond the raw list keep their values.
func (v *Validator) MapConfigurations(cs []Constraint, props []Property, raw []string) ([]Property, Status) {
	declared := HasPropertyConstraints(cs)
	if len(raw) > len(declared) {
		return nil, Errorf("%d values provided but only %d properties are declared", len(raw), len(declared))
	}
	byKey := make(map[string]Property, len(props))
	for _, p := range props {
		byKey[p.Key] = p
	}
	updated := make([]Property, 0, len(declared))
	for i, hp := range declared {
		p, ok := byKey[hp.Param1]
		if !ok {
			return nil, Errorf("entity is missing property %q", hp.Param1)
		}
		if i < len(raw) {
			p.Value = raw[i]
		}
		updated = append(updated, p)
	}
	return updated, Ok()
}

// ViewerInput is the proposed access configuration for an entity: three sets
// of group names per role tier.
type ViewerInput struct {
	Maintainers []string
	Editors     []string
	Viewers     []string
}

// GetViewerChanges resolves group names against known groups and diffs the
// proposal with the current relations, producing minimal delete and insert
// sets. Unknown group names are dropped silently. A group appearing in
// several role sets keeps only its highest role.
func (v *Validator) GetViewerChanges(input ViewerInput, current []Viewer, groups []Group, targetRef ulid.ULID) (toDelete, toInsert []Viewer) {
	byName := make(map[string]ulid.ULID, len(groups))
	for _, g := range groups {
		byName[g.Name] = g.ID
	}

	// Resolve names, keeping the highest role per group.
	desired := make(map[ulid.ULID]ViewerRole)
	resolve := func(names []string, role ViewerRole) {
		for _, name := range names {
			id, ok := byName[name]
			if !ok {
				continue
			}
			if cur, ok := desired[id]; !ok || role.Rank() > cur.Rank() {
				desired[id] = role
			}
		}
	}
	resolve(input.Viewers, RoleViewer)
	resolve(input.Editors, RoleEditor)
	resolve(input.Maintainers, RoleMaintainer)

	currentRole := make(map[ulid.ULID]Viewer, len(current))
	for _, rel := range current {
		currentRole[rel.GroupID] = rel
	}

	for groupID, role := range desired {
		if rel, ok := currentRole[groupID]; ok {
			if rel.Role == role {
				continue
			}
			toDelete = append(toDelete, rel)
		}
		toInsert = append(toInsert, Viewer{
			ID:        NewULID(),
			TargetRef: targetRef,
			GroupID:   groupID,
			Role:      role,
		})
	}
	for groupID, rel := range currentRole {
		if _, ok := desired[groupID]; !ok {
			toDelete = append(toDelete, rel)
		}
	}
	return toDelete, toInsert
}

// IsValidStateTransition checks the lifecycle transition table for this kind.
// Created is never a target; Archived is never a source. Container kinds may
// only archive when every child is in a closed terminal state; nested leaf
// kinds never archive directly, only via the parent's cascade. Transitions
// among the open, paused, and closed states are unrestricted.
func (v *Validator) IsValidStateTransition(oldState, newState EntityState, childStates []EntityState) Status {
	if err := newState.Validate(); err != nil {
		return Errorf("unknown state %q", newState)
	}
	if oldState == StateArchived {
		return Errorf("entity is archived; no transition to %q is possible", newState)
	}
	if newState == StateCreated {
		return Errorf("state %q is initial only and cannot be re-entered", StateCreated)
	}
	if newState == StateArchived {
		if v.spec.Kind.Nested() {
			return Errorf("%s entities cannot be archived directly; archive the containing entity", v.spec.Kind)
		}
		if v.spec.Kind.Container() {
			for _, child := range childStates {
				if !child.ClosedTerminal() {
					return Errorf("cannot archive while a child is in state %q", child)
				}
			}
		}
	}
	return Ok()
}

// FindChildren extracts the child type values a container's constraint set
// permits. Schema-derived; used to offer allowed child types upstream.
func (v *Validator) FindChildren(cs []Constraint) []string {
	values := make([]string, 0)
	for _, c := range sortConstraintsByID(cs) {
		if c.Kind == ConstraintCanContain {
			values = append(values, c.Param1)
		}
	}
	return values
}

func hasPropertyKey(cs []Constraint, key string) bool {
	_, ok := findHasProperty(cs, key)
	return ok
}

func findHasProperty(cs []Constraint, key string) (Constraint, bool) {
	for _, c := range cs {
		if c.Kind == ConstraintHasProperty && c.Param1 == key {
			return c, true
		}
	}
	return Constraint{}, false
}
