package directory

import (
	"errors"
	"fmt"
	"strings"
)

// StaffContact is one on-call staff member. Phone numbers are unique.
type StaffContact struct {
	Name        string `json:"name"`
	PhoneNumber string `json:"phone"`
}

// Directory is the immutable roster built once at startup.
//
// There is no update path: changing the roster means redeploying.
// Safe for concurrent reads.
type Directory struct {
	contacts []StaffContact
	byPhone  map[string]StaffContact
}

var ErrEmptyRoster = errors.New("directory: roster is empty")

func New(contacts []StaffContact) (*Directory, error) {
	if len(contacts) == 0 {
		return nil, ErrEmptyRoster
	}

	d := &Directory{
		contacts: make([]StaffContact, 0, len(contacts)),
		byPhone:  make(map[string]StaffContact, len(contacts)),
	}
	for i, c := range contacts {
		c.Name = strings.TrimSpace(c.Name)
		c.PhoneNumber = strings.TrimSpace(c.PhoneNumber)
		if c.Name == "" || c.PhoneNumber == "" {
			return nil, fmt.Errorf("directory: entry %d needs both name and phone number", i)
		}
		if _, dup := d.byPhone[c.PhoneNumber]; dup {
			return nil, fmt.Errorf("directory: duplicate phone number %q", c.PhoneNumber)
		}
		d.byPhone[c.PhoneNumber] = c
		d.contacts = append(d.contacts, c)
	}
	return d, nil
}

// Lookup returns the contact owning phone. A miss is not an error.
func (d *Directory) Lookup(phone string) (StaffContact, bool) {
	c, ok := d.byPhone[strings.TrimSpace(phone)]
	return c, ok
}

// All returns the roster in configuration order.
func (d *Directory) All() []StaffContact {
	out := make([]StaffContact, len(d.contacts))
	copy(out, d.contacts)
	return out
}

func (d *Directory) Len() int { return len(d.contacts) }
