package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/studypal/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the comma-separated `ordering` query param; a leading "-" orders descending.
func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindTime parses an RFC3339 or YYYY-MM-DD query param into UTC.
// With `upTo`, a bare date stands for the end of that day.
func bindTime(values []string, upTo bool) (time.Time, error) {
	if len(values) == 0 || values[0] == "" {
		return time.Time{}, nil
	}
	val := values[0]
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		return time.Time{}, err
	}
	if upTo {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t.UTC(), nil
}

const (
	dateParamMsg = "dates must be RFC3339 or YYYY-MM-DD"
	boolParamMsg = "must be true or false"
)

// paramError names the query param an echo.ValueBinder CustomFunc failed on.
type paramError struct {
	field string
	msg   string
}

func (e paramError) Error() string { return e.field + ": " + e.msg }

// queryParamError turns a ValueBinder.BindError into a 400 naming the offending param.
func queryParamError(err error) error {
	var pErr paramError
	if errors.As(err, &pErr) {
		return core.NewValidationError(nil, core.FieldError{Field: pErr.field, Error: pErr.msg})
	}
	return core.NewValidationError(err, core.FieldError{Field: "query", Error: "malformed query params"})
}

// timeParam is an echo.ValueBinder CustomFunc storing a bindTime value of the param `field` in `dst`.
func timeParam(field string, dst *time.Time, upTo ...bool) func(values []string) []error {
	return func(values []string) []error {
		t, err := bindTime(values, len(upTo) > 0 && upTo[0])
		if err != nil {
			return []error{paramError{field: field, msg: dateParamMsg}}
		}
		*dst = t
		return nil
	}
}

// boolParam is an echo.ValueBinder CustomFunc storing the optional bool param `field` in `dst`.
func boolParam(field string, dst **bool) func(values []string) []error {
	return func(values []string) []error {
		if len(values) == 0 || values[0] == "" {
			return nil
		}
		val, err := strconv.ParseBool(values[0])
		if err != nil {
			return []error{paramError{field: field, msg: field + " " + boolParamMsg}}
		}
		*dst = &val
		return nil
	}
}
