// Package access decides who may use the founder and admin features.
package access

import "github.com/trezcool/studypal/core"

// Policy holds the configured founder and admin allow-lists. It is safe for concurrent use.
type Policy struct {
	founders map[string]struct{}
	admins   map[string]struct{}
}

func NewPolicy(founders, admins []string) *Policy {
	return &Policy{founders: toSet(founders), admins: toSet(admins)}
}

func toSet(emails []string) map[string]struct{} {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if e = core.CleanString(e, true /* lower */); e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func (p *Policy) IsFounder(email string) bool {
	_, ok := p.founders[core.CleanString(email, true /* lower */)]
	return ok
}

// IsAdmin is true for founders, allow-listed admins and users flagged as admin in the database.
func (p *Policy) IsAdmin(email string, flagged bool) bool {
	if flagged || p.IsFounder(email) {
		return true
	}
	_, ok := p.admins[core.CleanString(email, true /* lower */)]
	return ok
}
