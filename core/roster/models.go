package roster

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

type Student struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ParentEmail string `json:"parentEmail"`
	ParentPhone string `json:"parentPhone"`
}

// HasValidEmail reports whether the student's parent can be notified.
// The address is not strictly validated; it only needs an "@".
func (s Student) HasValidEmail() bool {
	return s.ParentEmail != "" && strings.Contains(s.ParentEmail, "@")
}

type Class struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Students []Student `json:"students"`
}

// Recipients returns the parent addresses of all students in the class
// that can be notified, in student order.
func (c Class) Recipients() []mail.Address {
	recipients := make([]mail.Address, 0, len(c.Students))
	for _, s := range c.Students {
		if s.HasValidEmail() {
			recipients = append(recipients, mail.Address{Name: s.Name, Address: s.ParentEmail})
		}
	}
	return recipients
}

func (c Class) clone() Class {
	c.Students = append([]Student(nil), c.Students...)
	return c
}

// Roster is the full ordered sequence of classes; the single persisted aggregate.
type Roster []Class

func (r Roster) clone() Roster {
	out := make(Roster, len(r))
	for i, c := range r {
		out[i] = c.clone()
	}
	return out
}

func NewID() string { return uuid.NewString() }

// Seed returns the sample roster used when no prior state exists.
func Seed() Roster {
	return Roster{
		{
			ID:   "1",
			Name: "Classe A - Initiation Piano",
			Students: []Student{
				{ID: "101", Name: "Jean Dupont", ParentEmail: "parent.jean@exemple.com", ParentPhone: "0612345678"},
			},
		},
		{
			ID:   "2",
			Name: "Classe B - Violon Débutant",
			Students: []Student{
				{ID: "102", Name: "Marie Curie", ParentEmail: "parent.marie@exemple.com", ParentPhone: "0687654321"},
			},
		},
	}
}
