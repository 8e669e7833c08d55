package store

import (
	"github.com/vdavid/mailvault/internal/models"
	"github.com/vdavid/mailvault/internal/normalize"
	"github.com/vdavid/mailvault/internal/parser"
)

// RecipientRef is one recipient of a message before it is stored.
type RecipientRef struct {
	Role  string
	Email string
	Name  string
}

// RecipientsOf lists the To, Cc and Bcc recipients of a message, once per
// (role, address) pair and in header order.
func RecipientsOf(email *normalize.NormalizedEmail) []RecipientRef {
	var refs []RecipientRef
	seen := make(map[RecipientRef]bool)

	add := func(role string, list []parser.Address) {
		for _, a := range list {
			if a.Address == "" {
				continue
			}
			key := RecipientRef{Role: role, Email: a.Address}
			if seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, RecipientRef{Role: role, Email: a.Address, Name: a.Name})
		}
	}

	add(models.RoleTo, email.To)
	add(models.RoleCc, email.Cc)
	add(models.RoleBcc, email.Bcc)

	return refs
}
