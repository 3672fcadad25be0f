package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/okian/matchreel/internal/domain/errs"
)

const maxBodyBytes = 1 << 20

var (
	bindOnce sync.Once
	bindV    *validator.Validate
)

func bodyValidator() *validator.Validate {
	bindOnce.Do(func() {
		bindV = validator.New(validator.WithRequiredStructEnabled())
		// report json names in messages
		bindV.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("json")
			if tag == "-" || tag == "" {
				return fld.Name
			}
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			return tag
		})
	})
	return bindV
}

// decode reads a JSON body into T and validates struct tags. Unknown fields
// are rejected.
func decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var out T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, fmt.Errorf("%w: empty body", ErrBadRequest)
		}
		return out, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	if dec.More() {
		return out, fmt.Errorf("%w: trailing data after JSON body", ErrBadRequest)
	}
	if reflect.Indirect(reflect.ValueOf(out)).Kind() != reflect.Struct {
		return out, nil
	}
	if err := bodyValidator().Struct(out); err != nil {
		return out, errs.Validation("api.decode", validationMessage(err))
	}
	return out, nil
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fe.Field()+" is required")
		case "gte", "min":
			parts = append(parts, fe.Field()+" must be at least "+fe.Param())
		case "oneof":
			parts = append(parts, fe.Field()+" must be one of "+fe.Param())
		default:
			parts = append(parts, fe.Field()+" failed "+fe.Tag())
		}
	}
	return strings.Join(parts, "; ")
}
