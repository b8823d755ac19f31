package notion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atmagaming/finances/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names as they appear in the workspace databases.
const (
	propName           = "Name"
	propStatus         = "Status"
	propPerson         = "Person"
	propSensitiveData  = "Sensitive Data"
	propNotionPerson   = "Notion Person"
	propHourlyPaid     = "Hourly Paid"
	propHourlyAccrued  = "Hourly Accrued"
	propSchedule       = "Schedule (hours)"
	propMonthlyPaid    = "Monthly Paid"
	propMonthlyAccrued = "Monthly Accrued"
	propMonthlyTotal   = "Monthly Total"
	propStartDate      = "Start Date"
	propEndDate        = "End Date"
	propType           = "Type"
	propAccrued        = "Accrued"
	propInvested       = "Invested"
	propNote           = "Note"
	propAmount         = "Amount"
	propUSDEquivalent  = "USD Equivalent"
	propCurrency       = "Currency"
	propMethod         = "Method"
	propCategory       = "Category"
	propLogicalDate    = "Logical Date"
	propFactualDate    = "Factual Date"
	propFromTo         = "From / To"
	propDates          = "Dates"
)

// pageReader reads properties of one page, collecting every problem instead of
// stopping at the first.
type pageReader struct {
	props notionapi.Properties
	errs  []error
}

func newPageReader(page notionapi.Page) *pageReader {
	return &pageReader{props: page.Properties}
}

func (r *pageReader) note(err error) {
	if err != nil {
		r.errs = append(r.errs, err)
	}
}

func (r *pageReader) text(name string) string {
	v, err := Text(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) number(name string) float64 {
	v, err := Number(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) selectName(name string) string {
	v, err := Select(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) dateStart(name string) string {
	v, err := DateStart(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) dateEnd(name string) string {
	v, err := DateEnd(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) relations(name string) []string {
	v, err := RelationIDs(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) relation(name string) string {
	v, err := FirstRelationID(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) formulaString(name string) string {
	v, err := FormulaString(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) formulaNumber(name string) float64 {
	v, err := FormulaNumber(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) peopleEmail(name string) string {
	v, err := PeopleEmail(r.props, name)
	r.note(err)
	return v
}

func (r *pageReader) err(page notionapi.Page) error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("page %s: %w", page.ID, errors.Join(r.errs...))
}

// ParseSchedule parses a comma separated list of daily hours, e.g. "8, 8, 8, 8, 8, 0, 0".
// Blank entries count as zero.
func ParseSchedule(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return []float64{}, nil
	}

	parts := strings.Split(s, ",")
	schedule := make([]float64, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			schedule = append(schedule, 0)
			continue
		}
		hours, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("ParseSchedule: entry %d %q: %w", i, part, err)
		}
		schedule = append(schedule, hours)
	}
	return schedule, nil
}

// DecodePerson converts a People database page.
func DecodePerson(page notionapi.Page) (domain.Person, error) {
	r := newPageReader(page)
	p := domain.Person{
		ID:               string(page.ID),
		Name:             r.text(propName),
		Status:           r.formulaString(propStatus),
		SensitiveDataIDs: r.relations(propSensitiveData),
		NotionEmail:      r.peopleEmail(propNotionPerson),
	}
	return p, r.err(page)
}

// DecodeSensitiveData converts a Sensitive Data database page. HoursPerWeek is
// derived from the schedule.
func DecodeSensitiveData(page notionapi.Page) (domain.SensitiveData, error) {
	r := newPageReader(page)
	sd := domain.SensitiveData{
		ID:              string(page.ID),
		Name:            r.text(propName),
		PersonID:        r.relation(propPerson),
		HourlyPaid:      r.number(propHourlyPaid),
		HourlyInvested:  r.number(propHourlyAccrued),
		MonthlyPaid:     r.formulaNumber(propMonthlyPaid),
		MonthlyInvested: r.formulaNumber(propMonthlyAccrued),
		MonthlyTotal:    r.formulaNumber(propMonthlyTotal),
		StartDate:       r.dateStart(propStartDate),
		EndDate:         r.dateStart(propEndDate),
		Status:          r.formulaString(propStatus),
	}

	schedule, err := ParseSchedule(r.text(propSchedule))
	r.note(err)
	sd.Schedule = schedule
	for _, hours := range schedule {
		sd.HoursPerWeek += hours
	}

	return sd, r.err(page)
}

// DecodePayee converts a Payees database page.
func DecodePayee(page notionapi.Page) (domain.Payee, error) {
	r := newPageReader(page)
	p := domain.Payee{
		ID:       string(page.ID),
		Name:     r.text(propName),
		PersonID: r.relation(propPerson),
		Type:     r.formulaString(propType),
		Accrued:  r.formulaNumber(propAccrued),
		Invested: r.formulaNumber(propInvested),
	}
	return p, r.err(page)
}

// DecodeTransaction converts a Transactions database page. The payee name is
// resolved later, against the payees table.
func DecodeTransaction(page notionapi.Page) (domain.Transaction, error) {
	r := newPageReader(page)
	tx := domain.Transaction{
		ID:            string(page.ID),
		Note:          r.text(propNote),
		Amount:        r.number(propAmount),
		USDEquivalent: r.formulaNumber(propUSDEquivalent),
		Currency:      r.selectName(propCurrency),
		Method:        domain.Method(r.formulaString(propMethod)),
		Category:      r.selectName(propCategory),
		LogicalDate:   r.dateStart(propLogicalDate),
		FactualDate:   r.dateStart(propFactualDate),
		PayeeID:       r.relation(propFromTo),
	}
	return tx, r.err(page)
}

// DecodeVacation converts a Vacations database page.
func DecodeVacation(page notionapi.Page) (domain.Vacation, error) {
	r := newPageReader(page)
	v := domain.Vacation{
		ID:        string(page.ID),
		PersonID:  r.relation(propPerson),
		Type:      r.selectName(propType),
		StartDate: r.dateStart(propDates),
		EndDate:   r.dateEnd(propDates),
	}
	return v, r.err(page)
}
