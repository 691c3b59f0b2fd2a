package internal

// Placeholders written in place of fields the pipeline could not detect.
const (
	NoPhones        = "No phones detected"
	NoEmails        = "No emails detected"
	NoWebsite       = "No website detected"
	NoStreetAddress = "No street address detected"
	NoCity          = "No city detected"
	NoCountry       = "No country detected"
	NoPostalCode    = "No postal code detected"
)

// Output column names. The first header starts with a Cyrillic "С" (U+0421),
// kept for byte compatibility with existing consumers of the CSV.
const (
	ColumnCompanyName   = "Сompany name"
	ColumnPhones        = "Phone numbers"
	ColumnEmails        = "Emails"
	ColumnWebsites      = "Websites"
	ColumnStreetAddress = "Street address"
	ColumnCity          = "City"
	ColumnCountry       = "Country"
	ColumnPostalCode    = "Postal code"
)

var Columns = []string{
	ColumnCompanyName,
	ColumnPhones,
	ColumnEmails,
	ColumnWebsites,
	ColumnStreetAddress,
	ColumnCity,
	ColumnCountry,
	ColumnPostalCode,
}

// Company is one extracted registry entry. Nil scalars and empty lists mean
// the field was not detected; placeholders are applied by Cells and View.
type Company struct {
	Name          string
	Phones        []string
	Emails        []string
	Websites      []string
	StreetAddress *string
	City          *string
	Country       *string
	PostalCode    *string
}

// Cell is a serialized field: either a list of values or a single string.
type Cell struct {
	List   []string
	Value  string
	IsList bool
}

// Cells returns the eight output fields in column order with placeholders applied.
func (c Company) Cells() []Cell {
	return []Cell{
		{Value: c.Name},
		listCell(c.Phones, NoPhones),
		listCell(c.Emails, NoEmails),
		listCell(c.Websites, NoWebsite),
		scalarCell(c.StreetAddress, NoStreetAddress),
		scalarCell(c.City, NoCity),
		scalarCell(c.Country, NoCountry),
		scalarCell(c.PostalCode, NoPostalCode),
	}
}

func listCell(values []string, placeholder string) Cell {
	if len(values) == 0 {
		return Cell{Value: placeholder}
	}
	return Cell{List: values, IsList: true}
}

func scalarCell(value *string, placeholder string) Cell {
	if value == nil {
		return Cell{Value: placeholder}
	}
	return Cell{Value: *value}
}

// CompanyView is the JSON shape of a Company. List fields hold either a
// []string or the placeholder string, as in the tabular output.
type CompanyView struct {
	Name          string `json:"company_name"`
	Phones        any    `json:"phone_numbers"`
	Emails        any    `json:"emails"`
	Websites      any    `json:"websites"`
	StreetAddress string `json:"street_address"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PostalCode    string `json:"postal_code"`
}

func (c Company) View() CompanyView {
	cells := c.Cells()
	return CompanyView{
		Name:          cells[0].Value,
		Phones:        cells[1].any(),
		Emails:        cells[2].any(),
		Websites:      cells[3].any(),
		StreetAddress: cells[4].Value,
		City:          cells[5].Value,
		Country:       cells[6].Value,
		PostalCode:    cells[7].Value,
	}
}

func (c Cell) any() any {
	if c.IsList {
		return c.List
	}
	return c.Value
}

type RunStatus string

const (
	RunStarted  RunStatus = "started"
	RunFinished RunStatus = "finished"
	RunFailed   RunStatus = "failed"
)

// RunRow is the bookkeeping entry stored for every batch run.
type RunRow struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Status     RunStatus      `json:"status"`
	Rows       int            `json:"rows"`
	Counts     map[string]int `json:"counts"`
	OutputCSV  string         `json:"output_csv,omitempty"`
	OutputXLSX string         `json:"output_xlsx,omitempty"`
	Error      string         `json:"error,omitempty"`
	StartedAt  string         `json:"started_at"`
	FinishedAt string         `json:"finished_at,omitempty"`
}
