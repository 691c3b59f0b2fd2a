package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fscner/internal"
	"fscner/internal/recognizer"
	"fscner/internal/taxonomy"
	"fscner/internal/util"
)

// Builder turns one raw registry row into a Company using two recognizer
// calls: one for emails, one for the remaining six fields.
type Builder struct {
	rec    recognizer.Recognizer
	tax    *taxonomy.Taxonomy
	logger *slog.Logger
}

func NewBuilder(rec recognizer.Recognizer, tax *taxonomy.Taxonomy, logger *slog.Logger) *Builder {
	if tax == nil {
		tax = taxonomy.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{rec: rec, tax: tax, logger: logger}
}

// Candidates holds the raw recognizer spans for one row, grouped by field.
type Candidates struct {
	Emails []string
	Fields map[taxonomy.FieldKey][]string
}

// Recognize runs both recognizer calls for row.
func (b *Builder) Recognize(ctx context.Context, row string) (Candidates, error) {
	emailEnts, err := b.rec.Predict(ctx, row, []string{b.tax.Email().Description})
	if err != nil {
		return Candidates{}, fmt.Errorf("recognize emails: %w", err)
	}
	cands := Candidates{
		Emails: make([]string, 0, len(emailEnts)),
		Fields: make(map[taxonomy.FieldKey][]string, len(taxonomy.FieldKeys)),
	}
	for _, e := range emailEnts {
		cands.Emails = append(cands.Emails, e.Text)
	}

	ents, err := b.rec.Predict(ctx, row, b.tax.Labels())
	if err != nil {
		return Candidates{}, fmt.Errorf("recognize fields: %w", err)
	}
	for _, e := range ents {
		key, ok := b.tax.Classify(e.Label)
		if !ok {
			b.logger.Debug("dropping unmapped label", "label", e.Label, "text", e.Text)
			continue
		}
		cands.Fields[key] = append(cands.Fields[key], e.Text)
	}
	return cands, nil
}

// Build recognizes and assembles one registry row.
func (b *Builder) Build(ctx context.Context, row string) (internal.Company, error) {
	cands, err := b.Recognize(ctx, row)
	if err != nil {
		return internal.Company{}, err
	}
	return Assemble(row, cands), nil
}

// Assemble applies the cleanup rules to recognizer candidates.
func Assemble(row string, cands Candidates) internal.Company {
	name, _, _ := strings.Cut(row, ",")
	company := internal.Company{
		Name:     name,
		Phones:   NormalizePhones(cands.Fields[taxonomy.Phone]),
		Emails:   NormalizeEmails(cands.Emails),
		Websites: append([]string(nil), cands.Fields[taxonomy.Site]...),
	}

	if streets := FilterStreetAddresses(cands.Fields[taxonomy.StreetAddress]); len(streets) > 0 {
		company.StreetAddress = util.StringPtr(streets[0])
	}
	if cities := cands.Fields[taxonomy.City]; len(cities) > 0 {
		company.City = util.StringPtr(cities[0])
	}
	if countries := cands.Fields[taxonomy.Country]; len(countries) > 0 {
		company.Country = util.StringPtr(countries[0])
	}

	if codes := FilterPostalCodes(cands.Fields[taxonomy.PostalCode]); len(codes) > 0 {
		company.PostalCode = util.StringPtr(codes[0])
	} else if code, ok := PostalCodeFallback(row); ok {
		company.PostalCode = util.StringPtr(code)
	}
	return company
}
