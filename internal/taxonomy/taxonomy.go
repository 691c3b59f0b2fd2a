// Package taxonomy holds the label descriptions handed to the entity
// recognizer and the reverse lookup that maps recognizer labels back to
// company field keys.
package taxonomy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type FieldKey string

const (
	Phone         FieldKey = "phone"
	Site          FieldKey = "site"
	StreetAddress FieldKey = "street_address"
	City          FieldKey = "city"
	Country       FieldKey = "country"
	PostalCode    FieldKey = "postal_code"
	Email         FieldKey = "email"
)

// FieldKeys lists the keys queried together in one recognizer call, in
// prompt order. Email is queried on its own.
var FieldKeys = []FieldKey{Phone, Site, StreetAddress, City, Country, PostalCode}

var (
	ErrDuplicateKey         = errors.New("taxonomy: duplicate field key")
	ErrDuplicateDescription = errors.New("taxonomy: duplicate label description")
	ErrUnknownKey           = errors.New("taxonomy: unknown field key")
	ErrMissingKey           = errors.New("taxonomy: missing field key")
	ErrEmptyDescription     = errors.New("taxonomy: empty label description")
)

type Entry struct {
	Key         FieldKey `yaml:"key"`
	Description string   `yaml:"description"`
}

// Taxonomy is immutable once built; share one instance across goroutines.
type Taxonomy struct {
	fields  []Entry
	email   Entry
	reverse map[string]FieldKey
}

var defaultFields = []Entry{
	{Key: Phone, Description: "phone number like +359 2 439 81 50 or starting with +359"},
	{Key: Site, Description: "website address like www.bank.bg or www.domain.com"},
	{Key: StreetAddress, Description: "street address that contains street name and number like '16 Srebarna Str.'"},
	{Key: City, Description: "city name in Bulgaria (e.g. Sofia, Plovdiv)"},
	{Key: Country, Description: "country name like Bulgaria"},
	{Key: PostalCode, Description: "numeric postal code"},
}

var defaultEmail = Entry{Key: Email, Description: "email address with @ symbol, e.g. info@company.bg"}

// Default returns the built-in label set.
func Default() *Taxonomy {
	t, err := New(defaultFields, defaultEmail)
	if err != nil {
		panic(err)
	}
	return t
}

// New validates that keys and descriptions form a bijection and that the
// field set is exactly FieldKeys.
func New(fields []Entry, email Entry) (*Taxonomy, error) {
	allowed := map[FieldKey]bool{}
	for _, k := range FieldKeys {
		allowed[k] = true
	}

	t := &Taxonomy{
		fields:  make([]Entry, 0, len(fields)),
		reverse: make(map[string]FieldKey, len(fields)),
	}
	seenKeys := map[FieldKey]bool{}
	seenDesc := map[string]FieldKey{}

	for _, e := range fields {
		if !allowed[e.Key] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, e.Key)
		}
		if seenKeys[e.Key] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.Key)
		}
		if strings.TrimSpace(e.Description) == "" {
			return nil, fmt.Errorf("%w: %q", ErrEmptyDescription, e.Key)
		}
		if other, ok := seenDesc[e.Description]; ok {
			return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateDescription, e.Description, other, e.Key)
		}
		seenKeys[e.Key] = true
		seenDesc[e.Description] = e.Key
		t.fields = append(t.fields, e)
		t.reverse[e.Description] = e.Key
	}
	for _, k := range FieldKeys {
		if !seenKeys[k] {
			return nil, fmt.Errorf("%w: %q", ErrMissingKey, k)
		}
	}

	if email.Key == "" {
		email.Key = Email
	}
	if email.Key != Email {
		return nil, fmt.Errorf("%w: email entry has key %q", ErrUnknownKey, email.Key)
	}
	if strings.TrimSpace(email.Description) == "" {
		return nil, fmt.Errorf("%w: %q", ErrEmptyDescription, Email)
	}
	if other, ok := seenDesc[email.Description]; ok {
		return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateDescription, email.Description, other, Email)
	}
	t.email = email

	return t, nil
}

type fileFormat struct {
	Fields []Entry `yaml:"fields"`
	Email  Entry   `yaml:"email"`
}

// Load reads a taxonomy from a YAML file:
//
//	fields:
//	  - key: phone
//	    description: phone number like +359 ...
//	email:
//	  description: email address with @ symbol
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	return New(f.Fields, f.Email)
}

// LoadOrDefault loads path, or returns Default when path is empty.
func LoadOrDefault(path string) (*Taxonomy, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	return Load(path)
}

func (t *Taxonomy) Fields() []Entry {
	out := make([]Entry, len(t.fields))
	copy(out, t.fields)
	return out
}

func (t *Taxonomy) Email() Entry {
	return t.email
}

// Labels returns the non-email descriptions in field order.
func (t *Taxonomy) Labels() []string {
	out := make([]string, 0, len(t.fields))
	for _, e := range t.fields {
		out = append(out, e.Description)
	}
	return out
}

// Classify maps a recognizer label back to its field key. The email
// description is not classified.
func (t *Taxonomy) Classify(description string) (FieldKey, bool) {
	key, ok := t.reverse[description]
	return key, ok
}

// Describe returns the description of key, including email.
func (t *Taxonomy) Describe(key FieldKey) (string, bool) {
	if key == Email {
		return t.email.Description, true
	}
	for _, e := range t.fields {
		if e.Key == key {
			return e.Description, true
		}
	}
	return "", false
}
