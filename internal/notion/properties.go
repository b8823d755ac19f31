package notion

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// ErrPropertyType is returned when a property exists but holds an unexpected type.
var ErrPropertyType = errors.New("unexpected property type")

const dateLayout = "2006-01-02"

// The readers below return the zero value for a missing property and
// ErrPropertyType for a property of the wrong kind.

func typeError(name string, prop notionapi.Property) error {
	return fmt.Errorf("%w: %q is %T", ErrPropertyType, name, prop)
}

func plainText(items []notionapi.RichText) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.PlainText)
	}
	return b.String()
}

// Text reads a title or rich text property as plain text.
func Text(props notionapi.Properties, name string) (string, error) {
	switch p := props[name].(type) {
	case nil:
		return "", nil
	case *notionapi.TitleProperty:
		return plainText(p.Title), nil
	case *notionapi.RichTextProperty:
		return plainText(p.RichText), nil
	default:
		return "", typeError(name, p)
	}
}

// Number reads a number property.
func Number(props notionapi.Properties, name string) (float64, error) {
	switch p := props[name].(type) {
	case nil:
		return 0, nil
	case *notionapi.NumberProperty:
		return p.Number, nil
	default:
		return 0, typeError(name, p)
	}
}

// Select reads a select or status property as its option name.
func Select(props notionapi.Properties, name string) (string, error) {
	switch p := props[name].(type) {
	case nil:
		return "", nil
	case *notionapi.SelectProperty:
		return p.Select.Name, nil
	case *notionapi.StatusProperty:
		return p.Status.Name, nil
	default:
		return "", typeError(name, p)
	}
}

func formatDate(d *notionapi.Date) string {
	if d == nil {
		return ""
	}
	t := time.Time(*d)
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func dateObject(props notionapi.Properties, name string) (*notionapi.DateObject, error) {
	switch p := props[name].(type) {
	case nil:
		return nil, nil
	case *notionapi.DateProperty:
		return p.Date, nil
	default:
		return nil, typeError(name, p)
	}
}

// DateStart reads the start of a date property as YYYY-MM-DD, "" when unset.
func DateStart(props notionapi.Properties, name string) (string, error) {
	d, err := dateObject(props, name)
	if err != nil || d == nil {
		return "", err
	}
	return formatDate(d.Start), nil
}

// DateEnd reads the end of a date range property as YYYY-MM-DD, "" when unset.
func DateEnd(props notionapi.Properties, name string) (string, error) {
	d, err := dateObject(props, name)
	if err != nil || d == nil {
		return "", err
	}
	return formatDate(d.End), nil
}

// RelationIDs reads the page ids of a relation property.
func RelationIDs(props notionapi.Properties, name string) ([]string, error) {
	switch p := props[name].(type) {
	case nil:
		return nil, nil
	case *notionapi.RelationProperty:
		ids := make([]string, 0, len(p.Relation))
		for _, r := range p.Relation {
			ids = append(ids, string(r.ID))
		}
		return ids, nil
	default:
		return nil, typeError(name, p)
	}
}

// FirstRelationID is RelationIDs for single-valued relations.
func FirstRelationID(props notionapi.Properties, name string) (string, error) {
	ids, err := RelationIDs(props, name)
	if err != nil || len(ids) == 0 {
		return "", err
	}
	return ids[0], nil
}

func formula(props notionapi.Properties, name string) (*notionapi.Formula, error) {
	switch p := props[name].(type) {
	case nil:
		return nil, nil
	case *notionapi.FormulaProperty:
		return &p.Formula, nil
	default:
		return nil, typeError(name, p)
	}
}

// FormulaString reads a formula result as a string; number results are formatted.
func FormulaString(props notionapi.Properties, name string) (string, error) {
	f, err := formula(props, name)
	if err != nil || f == nil {
		return "", err
	}
	switch f.Type {
	case notionapi.FormulaTypeString:
		return f.String, nil
	case notionapi.FormulaTypeNumber:
		return strconv.FormatFloat(f.Number, 'f', -1, 64), nil
	default:
		return "", nil
	}
}

// FormulaNumber reads a numeric formula result.
func FormulaNumber(props notionapi.Properties, name string) (float64, error) {
	f, err := formula(props, name)
	if err != nil || f == nil {
		return 0, err
	}
	if f.Type != notionapi.FormulaTypeNumber {
		return 0, nil
	}
	return f.Number, nil
}

// PeopleEmail reads the email of the first person in a people property.
func PeopleEmail(props notionapi.Properties, name string) (string, error) {
	switch p := props[name].(type) {
	case nil:
		return "", nil
	case *notionapi.PeopleProperty:
		for _, user := range p.People {
			if user.Person != nil && user.Person.Email != "" {
				return user.Person.Email, nil
			}
		}
		return "", nil
	default:
		return "", typeError(name, p)
	}
}
