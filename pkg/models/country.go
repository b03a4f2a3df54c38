package models

import "strings"

// Country is the normalized form of one REST Countries record.
// Name is logically unique; the store enforces it with a lookup on insert.
type Country struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Region     string   `json:"region"`
	Capitals   []string `json:"capital"`
	Continents []string `json:"continent"`
	Landlocked bool     `json:"landlocked"`
	Currencies []string `json:"currency"` // "CODE (Display Name)"
}

// Currency renders the currencies the way the reports print them.
func (c Country) Currency() string {
	if len(c.Currencies) == 0 {
		return "Unknown"
	}
	return strings.Join(c.Currencies, ", ")
}

// Language is one spoken language of a country.
type Language struct {
	ID        int64  `json:"id"`
	CountryID int64  `json:"country_id"`
	Name      string `json:"language_name"`
}
