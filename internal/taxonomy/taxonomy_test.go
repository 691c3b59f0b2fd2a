package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsBijective(t *testing.T) {
	tax := Default()

	labels := tax.Labels()
	require.Len(t, labels, len(FieldKeys))
	for i, e := range tax.Fields() {
		assert.Equal(t, FieldKeys[i], e.Key)
		assert.Equal(t, e.Description, labels[i])

		key, ok := tax.Classify(e.Description)
		require.True(t, ok, "description %q not classified", e.Description)
		assert.Equal(t, e.Key, key)
	}

	_, ok := tax.Classify(tax.Email().Description)
	assert.False(t, ok, "email description must not be classified")

	_, ok = tax.Classify("something the model made up")
	assert.False(t, ok)
}

func TestNewRejectsDuplicateDescription(t *testing.T) {
	fields := Default().Fields()
	fields[1].Description = fields[0].Description

	_, err := New(fields, Default().Email())
	assert.ErrorIs(t, err, ErrDuplicateDescription)
}

func TestNewRejectsEmailCollision(t *testing.T) {
	fields := Default().Fields()
	email := Entry{Key: Email, Description: fields[2].Description}

	_, err := New(fields, email)
	assert.ErrorIs(t, err, ErrDuplicateDescription)
}

func TestNewRejectsBadKeys(t *testing.T) {
	fields := Default().Fields()
	email := Default().Email()

	dup := append([]Entry{}, fields...)
	dup[5] = Entry{Key: Phone, Description: "another phone"}
	_, err := New(dup, email)
	assert.ErrorIs(t, err, ErrDuplicateKey)

	_, err = New(fields[:5], email)
	assert.ErrorIs(t, err, ErrMissingKey)

	unknown := append(append([]Entry{}, fields...), Entry{Key: "fax", Description: "fax number"})
	_, err = New(unknown, email)
	assert.ErrorIs(t, err, ErrUnknownKey)

	empty := append([]Entry{}, fields...)
	empty[0].Description = "  "
	_, err = New(empty, email)
	assert.ErrorIs(t, err, ErrEmptyDescription)
}

func TestFieldsReturnsCopy(t *testing.T) {
	tax := Default()
	fields := tax.Fields()
	fields[0].Description = "mutated"

	assert.NotEqual(t, "mutated", tax.Fields()[0].Description)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	data := `fields:
  - key: phone
    description: telephone number
  - key: site
    description: web site
  - key: street_address
    description: street and number
  - key: city
    description: city
  - key: country
    description: country
  - key: postal_code
    description: four digit postal code
email:
  description: e-mail address
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)

	key, ok := tax.Classify("four digit postal code")
	require.True(t, ok)
	assert.Equal(t, PostalCode, key)
	assert.Equal(t, Email, tax.Email().Key)

	desc, ok := tax.Describe(Email)
	require.True(t, ok)
	assert.Equal(t, "e-mail address", desc)
}

func TestLoadOrDefault(t *testing.T) {
	tax, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default().Labels(), tax.Labels())

	_, err = LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedTaxonomyFileMatchesDefault(t *testing.T) {
	tax, err := Load(filepath.Join("..", "..", "configs", "taxonomy.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Fields(), tax.Fields())
	assert.Equal(t, Default().Email(), tax.Email())
}
