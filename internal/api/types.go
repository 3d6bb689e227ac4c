package api

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// QueryRequest is the /query/ body. Query is a pointer so an absent field
// fails validation while an empty string does not.
type QueryRequest struct {
	Query *string `json:"query" validate:"required"`
}

// RootResponse is the GET / body.
type RootResponse struct {
	Message string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate returns the failed rule per JSON field, or nil.
func (r *QueryRequest) Validate() map[string]string {
	if err := validate.Struct(r); err != nil {
		errs, ok := err.(validator.ValidationErrors)
		if !ok {
			return map[string]string{"body": err.Error()}
		}
		fields := make(map[string]string, len(errs))
		for _, e := range errs {
			fields[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
		return fields
	}
	return nil
}
