package pipeline

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"tradecatalog/internal"
)

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

var ruleMessages = map[string]string{
	"Name.required_without": "name or description is required",
	"Referencia.required":   "referencia is required",
	"Fabrica.required":      "fabrica is required",
	"UnitPriceRmb.gt":       "unitPriceRmb must be greater than 0",
}

// Validate checks the business rules a product must pass to be created or
// imported and returns one message per broken rule. With AutoReference set
// a blank referencia is allowed, since one will be generated on commit.
func Validate(p internal.Product, opts ImportOptions) []string {
	var err error
	if opts.AutoReference {
		err = validate.StructExcept(p, "Referencia")
	} else {
		err = validate.Struct(p)
	}
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := ruleMessages[fe.StructField()+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
		}
		out = append(out, msg)
	}
	return out
}

func CheckProduct(p internal.Product) error {
	if msgs := Validate(p, ImportOptions{}); len(msgs) > 0 {
		return &internal.ValidationError{Messages: msgs}
	}
	return nil
}
