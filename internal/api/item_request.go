package api

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/erazemk/achados/internal/i18n"
	"github.com/erazemk/achados/internal/model"
	"github.com/erazemk/achados/internal/validate"
)

// Item payload field names.
const (
	fieldName     = "name"
	fieldCategory = "category"
	fieldLocation = "location"
	fieldStatus   = "status"
)

// optional records whether a JSON field was present, and whether it was null.
type optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (o *optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// itemRequest is the body of POST, PUT and PATCH /api/items. Unknown keys
// such as "user" are ignored; ownership always comes from the token.
type itemRequest struct {
	Name          optional[string] `json:"name"`
	Description   optional[string] `json:"description"`
	Category      optional[int64]  `json:"category"`
	Location      optional[int64]  `json:"location"`
	Status        optional[string] `json:"status"`
	FoundLostDate optional[string] `json:"found_lost_date"`
}

// clean checks the request and copies accepted values onto item. When
// partial is true, only fields present in the request are checked and
// copied. Otherwise name, category, location and status are required.
// Description and found_lost_date are optional in both modes.
func (req *itemRequest) clean(item *model.Item, partial bool, now time.Time) validate.Errors {
	errs := validate.Errors{}

	if req.Name.Set || !partial {
		name := strings.TrimSpace(req.Name.Value)
		if err := validate.Required(fieldName, name); err != nil {
			errs.Add(err)
		} else {
			errs.Add(validate.MaxLength(fieldName, name, validate.MaxNameLength))
		}
		item.Name = name
	}

	if req.Description.Set {
		item.Description = strings.TrimSpace(req.Description.Value)
	}

	if id, err := cleanReference(fieldCategory, req.Category, partial); err != nil {
		errs.Add(err)
	} else if id != 0 {
		item.CategoryID = id
	}

	if id, err := cleanReference(fieldLocation, req.Location, partial); err != nil {
		errs.Add(err)
	} else if id != 0 {
		item.LocationID = id
	}

	if req.Status.Set || !partial {
		status := strings.TrimSpace(req.Status.Value)
		if err := validate.Required(fieldStatus, status); err != nil {
			errs.Add(err)
		} else {
			errs.Add(validate.Choice(fieldStatus, status, model.ValidItemStatus))
		}
		item.Status = status
	}

	if req.FoundLostDate.Set {
		raw := strings.TrimSpace(req.FoundLostDate.Value)
		switch {
		case req.FoundLostDate.Null || raw == "":
			item.FoundLostDate = nil
		default:
			t, err := validate.ParseTimestamp(raw)
			if err != nil {
				errs.Add(&validate.FieldError{Field: validate.FieldFoundLostDate, Key: i18n.KeyInvalidDate})
				break
			}
			errs.Add(validate.FoundLostDate(&t, now))
			item.FoundLostDate = &t
		}
	}

	return errs
}

// cleanReference returns the referenced ID, or 0 when the field is absent
// from a partial request.
func cleanReference(field string, v optional[int64], partial bool) (int64, *validate.FieldError) {
	if !v.Set && partial {
		return 0, nil
	}
	if !v.Set || v.Null || v.Value <= 0 {
		return 0, &validate.FieldError{Field: field, Key: i18n.KeyFieldRequired}
	}
	return v.Value, nil
}
