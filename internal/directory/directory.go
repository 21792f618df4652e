// Package directory is the in-memory doctor directory served by the doctor
// search server.
package directory

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

//go:embed doctors.json
var doctorsJSON []byte

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

type Education struct {
	MedicalSchool string  `json:"medical_school"`
	Residency     string  `json:"residency"`
	Fellowship    *string `json:"fellowship"`
}

type Doctor struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	Specialty            string    `json:"specialty"`
	Address              Address   `json:"address"`
	Phone                string    `json:"phone"`
	Email                string    `json:"email"`
	YearsExperience      int       `json:"years_experience"`
	BoardCertified       bool      `json:"board_certified"`
	HospitalAffiliations []string  `json:"hospital_affiliations"`
	Education            Education `json:"education"`
	Languages            []string  `json:"languages"`
	AcceptsNewPatients   bool      `json:"accepts_new_patients"`
	InsuranceAccepted    []string  `json:"insurance_accepted"`
}

// Directory is read-only after construction and safe for concurrent use.
type Directory struct {
	doctors []Doctor
}

// Load parses the bundled doctor fixture.
func Load() (*Directory, error) {
	var doctors []Doctor
	if err := json.Unmarshal(doctorsJSON, &doctors); err != nil {
		return nil, fmt.Errorf("failed to parse doctor fixture: %w", err)
	}
	return New(doctors), nil
}

func New(doctors []Doctor) *Directory {
	sorted := make([]Doctor, len(doctors))
	copy(sorted, doctors)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &Directory{doctors: sorted}
}

// Search returns the doctors practicing in state. Matching is case-insensitive.
func (d *Directory) Search(state string) []Doctor {
	state = strings.ToUpper(strings.TrimSpace(state))
	var matches []Doctor
	for _, doc := range d.doctors {
		if doc.Address.State == state {
			matches = append(matches, doc)
		}
	}
	return matches
}

// Lookup renders the doctors in state as a JSON object keyed by doctor id,
// or a plain "no results" sentence naming the state.
func (d *Directory) Lookup(state string) string {
	matches := d.Search(state)
	if len(matches) == 0 {
		return fmt.Sprintf("No doctors found in state: %s", state)
	}

	byID := make(map[string]Doctor, len(matches))
	for _, doc := range matches {
		byID[doc.ID] = doc
	}
	data, err := json.Marshal(byID)
	if err != nil {
		return fmt.Sprintf("No doctors found in state: %s", state)
	}
	return string(data)
}

// States lists the covered state codes in sorted order.
func (d *Directory) States() []string {
	seen := make(map[string]bool)
	var states []string
	for _, doc := range d.doctors {
		if !seen[doc.Address.State] {
			seen[doc.Address.State] = true
			states = append(states, doc.Address.State)
		}
	}
	sort.Strings(states)
	return states
}

func (d *Directory) Len() int {
	return len(d.doctors)
}
