package lint

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// DefaultCategory is the category of every built-in group.
const DefaultCategory = "lint"

// Registration errors.
var (
	ErrDuplicateRule   = errors.New("duplicate rule")
	ErrDuplicateGroup  = errors.New("duplicate group")
	ErrUnknownGroup    = errors.New("unknown group")
	ErrInvalidRule     = errors.New("invalid rule")
	ErrUnknownSelector = errors.New("unknown rule or group")
	ErrAmbiguous       = errors.New("ambiguous rule name")
)

// Category is a top-level family of groups.
type Category struct {
	Name        string
	Description string
}

// Group is a named set of rules.
type Group struct {
	Category    string // defaults to "lint"
	Name        string
	Description string
}

// Visitor receives the categories, groups and rules of a rule package.
// Rule packages expose a Register(v Visitor) function that records
// everything they define.
type Visitor interface {
	RecordCategory(c Category)
	RecordGroup(g Group)
	RecordRule(r Rule)
}

// Registrar records rules into a Visitor.
type Registrar func(v Visitor)

// GroupKey identifies a registered group.
type GroupKey struct {
	category string
	group    string
}

// Name returns the group name.
func (k GroupKey) Name() string { return k.group }

func (k GroupKey) String() string {
	if k.group == "" {
		return ""
	}
	return k.category + "/" + k.group
}

// RuleKey identifies a registered rule. Keys are issued by a Registry and
// are only meaningful for the registry that issued them. The zero key
// names no rule.
type RuleKey struct {
	category string
	group    string
	rule     string
	index    int
}

// Group returns the group key of the rule.
func (k RuleKey) Group() GroupKey { return GroupKey{category: k.category, group: k.group} }

// Name returns the rule name.
func (k RuleKey) Name() string { return k.rule }

// IsZero reports whether k names no rule.
func (k RuleKey) IsZero() bool { return k.rule == "" }

// String returns the rule's diagnostic category, e.g. "lint/safety/banDropColumn".
func (k RuleKey) String() string {
	if k.rule == "" {
		return ""
	}
	return k.category + "/" + k.group + "/" + k.rule
}

type registeredRule struct {
	key  RuleKey
	meta Metadata
	rule Rule
}

// Registry is the sorted, immutable table of known rules.
type Registry struct {
	categories []Category
	groups     []Group
	rules      []registeredRule
	byName     map[string][]int // lower-case rule name -> rule indexes
}

// NewRegistry builds a registry from the given registrars. The result does
// not depend on the order rules are recorded in: rules are sorted by group
// and name, and identical duplicates collapse. Conflicting definitions of
// the same rule or group are an error.
func NewRegistry(registrars ...Registrar) (*Registry, error) {
	b := &builder{
		categories: map[string]Category{DefaultCategory: {Name: DefaultCategory}},
		groups:     make(map[string]Group),
		rules:      make(map[[2]string]registeredRule),
	}
	for _, register := range registrars {
		if register != nil {
			register(b)
		}
	}
	return b.build()
}

type builder struct {
	categories map[string]Category
	groups     map[string]Group
	rules      map[[2]string]registeredRule
	errs       []error
}

func (b *builder) RecordCategory(c Category) {
	if c.Name == "" {
		b.errs = append(b.errs, fmt.Errorf("%w: category without a name", ErrInvalidRule))
		return
	}
	prev, ok := b.categories[c.Name]
	switch {
	case !ok || prev.Description == "":
		b.categories[c.Name] = c
	case c.Description != "" && c.Description != prev.Description:
		b.errs = append(b.errs, fmt.Errorf("%w: category %s", ErrDuplicateGroup, c.Name))
	}
}

func (b *builder) RecordGroup(g Group) {
	if g.Category == "" {
		g.Category = DefaultCategory
	}
	if g.Name == "" || strings.Contains(g.Name, "/") {
		b.errs = append(b.errs, fmt.Errorf("%w: invalid group name %q", ErrInvalidRule, g.Name))
		return
	}
	if prev, ok := b.groups[g.Name]; ok && prev != g {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name))
		return
	}
	b.groups[g.Name] = g
}

func (b *builder) RecordRule(r Rule) {
	if r == nil {
		b.errs = append(b.errs, fmt.Errorf("%w: nil rule", ErrInvalidRule))
		return
	}
	meta := r.Metadata()
	if meta.Category == "" {
		meta.Category = DefaultCategory
	}
	if meta.Name == "" || meta.Group == "" || strings.Contains(meta.Name, "/") {
		b.errs = append(b.errs, fmt.Errorf("%w: rule %q in group %q", ErrInvalidRule, meta.Name, meta.Group))
		return
	}
	id := [2]string{meta.Group, meta.Name}
	if prev, ok := b.rules[id]; ok {
		if !reflect.DeepEqual(prev.meta, meta) {
			b.errs = append(b.errs, fmt.Errorf("%w: %s/%s", ErrDuplicateRule, meta.Group, meta.Name))
		}
		return
	}
	b.rules[id] = registeredRule{meta: meta, rule: r}
}

func (b *builder) build() (*Registry, error) {
	for _, rr := range b.rules {
		g, ok := b.groups[rr.meta.Group]
		switch {
		case !ok:
			b.errs = append(b.errs, fmt.Errorf("%w: %q (rule %s)", ErrUnknownGroup, rr.meta.Group, rr.meta.Name))
		case g.Category != rr.meta.Category:
			b.errs = append(b.errs, fmt.Errorf("%w: rule %s is in category %q, group %s in %q",
				ErrInvalidRule, rr.meta.Name, rr.meta.Category, g.Name, g.Category))
		}
	}
	for _, g := range b.groups {
		if _, ok := b.categories[g.Category]; !ok {
			b.errs = append(b.errs, fmt.Errorf("%w: group %s has unknown category %q", ErrInvalidRule, g.Name, g.Category))
		}
	}
	if len(b.errs) > 0 {
		slices.SortFunc(b.errs, func(a, b error) int { return cmp.Compare(a.Error(), b.Error()) })
		return nil, errors.Join(b.errs...)
	}

	reg := &Registry{byName: make(map[string][]int)}
	for _, c := range b.categories {
		reg.categories = append(reg.categories, c)
	}
	slices.SortFunc(reg.categories, func(a, b Category) int { return cmp.Compare(a.Name, b.Name) })
	for _, g := range b.groups {
		reg.groups = append(reg.groups, g)
	}
	slices.SortFunc(reg.groups, func(a, b Group) int { return cmp.Compare(a.Name, b.Name) })

	for _, rr := range b.rules {
		reg.rules = append(reg.rules, rr)
	}
	slices.SortFunc(reg.rules, func(a, b registeredRule) int {
		return cmp.Or(cmp.Compare(a.meta.Group, b.meta.Group), cmp.Compare(a.meta.Name, b.meta.Name))
	})
	for i := range reg.rules {
		m := reg.rules[i].meta
		reg.rules[i].key = RuleKey{category: m.Category, group: m.Group, rule: m.Name, index: i}
		name := strings.ToLower(m.Name)
		reg.byName[name] = append(reg.byName[name], i)
	}
	return reg, nil
}

// Count returns the number of registered rules.
func (r *Registry) Count() int {
	return len(r.rules)
}

// Rules returns every rule key in (group, name) order.
func (r *Registry) Rules() []RuleKey {
	keys := make([]RuleKey, len(r.rules))
	for i, rr := range r.rules {
		keys[i] = rr.key
	}
	return keys
}

// Groups returns every group key in name order.
func (r *Registry) Groups() []GroupKey {
	keys := make([]GroupKey, len(r.groups))
	for i, g := range r.groups {
		keys[i] = GroupKey{category: g.Category, group: g.Name}
	}
	return keys
}

// Group returns the definition of a group.
func (r *Registry) Group(key GroupKey) (Group, bool) {
	i, ok := slices.BinarySearchFunc(r.groups, key.group, func(g Group, name string) int {
		return cmp.Compare(g.Name, name)
	})
	if !ok {
		return Group{}, false
	}
	return r.groups[i], true
}

// GroupRules returns the rules of a group in name order.
func (r *Registry) GroupRules(key GroupKey) []RuleKey {
	var keys []RuleKey
	for _, rr := range r.rules {
		if rr.key.group == key.group {
			keys = append(keys, rr.key)
		}
	}
	return keys
}

// Rule returns the rule behind key.
func (r *Registry) Rule(key RuleKey) (Rule, bool) {
	if !r.valid(key) {
		return nil, false
	}
	return r.rules[key.index].rule, true
}

// Metadata returns the metadata of the rule behind key, with defaults
// filled in.
func (r *Registry) Metadata(key RuleKey) (Metadata, bool) {
	if !r.valid(key) {
		return Metadata{}, false
	}
	return r.rules[key.index].meta, true
}

func (r *Registry) valid(key RuleKey) bool {
	return key.rule != "" && key.index >= 0 && key.index < len(r.rules) && r.rules[key.index].key == key
}

// Lookup resolves a selector to rule keys. Accepted forms are
// "lint/<group>/<rule>", "<group>/<rule>", "lint/<group>", "<group>" and a
// bare rule name when it is unique across groups. Names match
// case-insensitively.
func (r *Registry) Lookup(selector string) ([]RuleKey, error) {
	sel := strings.TrimSpace(selector)
	for _, c := range r.categories {
		if rest, ok := cutPrefixFold(sel, c.Name+"/"); ok {
			sel = rest
			break
		}
	}
	if sel == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, selector)
	}

	if group, name, ok := strings.Cut(sel, "/"); ok {
		for _, i := range r.byName[strings.ToLower(name)] {
			if strings.EqualFold(r.rules[i].key.group, group) {
				return []RuleKey{r.rules[i].key}, nil
			}
		}
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, selector)
	}

	for _, g := range r.groups {
		if strings.EqualFold(g.Name, sel) {
			return r.GroupRules(GroupKey{category: g.Category, group: g.Name}), nil
		}
	}

	switch idx := r.byName[strings.ToLower(sel)]; len(idx) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSelector, selector)
	case 1:
		return []RuleKey{r.rules[idx[0]].key}, nil
	default:
		names := make([]string, len(idx))
		for j, i := range idx {
			names[j] = r.rules[i].key.String()
		}
		return nil, fmt.Errorf("%w: %q matches %s", ErrAmbiguous, selector, strings.Join(names, ", "))
	}
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return s[len(prefix):], true
	}
	return s, false
}
