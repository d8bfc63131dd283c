package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validator returns validator of configuration structs, which reports fields
// by their env or yaml names.
var Validator = sync.OnceValue(newValidator)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	// Never fails, because tag and func are valid.
	_ = v.RegisterValidation("host_suffix", validHostSuffix)
	return v
}

func fieldName(fld reflect.StructField) string {
	tag := fld.Tag.Get("env")
	if tag == "" {
		tag = fld.Tag.Get("yaml")
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}

// validHostSuffix accepts lower case domain names like "example.com" or
// "localhost", which are matched against the end of request hostnames.
func validHostSuffix(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || s != strings.ToLower(s) {
		return false
	}

	for label := range strings.SplitSeq(s, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}
