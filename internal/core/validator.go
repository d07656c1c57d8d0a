package core

import (
	"errors"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/sumandas0/farmstore/internal/catalog"
	"github.com/sumandas0/farmstore/internal/models"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// Validator checks documents against their collection's typed model and
// query specs against the collection schema.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	v := &Validator{validate: validate}
	v.registerCustomValidators()
	return v
}

func (v *Validator) registerCustomValidators() {
	v.validate.RegisterValidation("product_category", func(fl validator.FieldLevel) bool {
		return slices.Contains(models.ProductCategories, fl.Field().String())
	})

	v.validate.RegisterValidation("not_blank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// ValidateFields decodes fields into the collection's model and runs the
// model's validate tags. The returned error lists every failing field.
func (v *Validator) ValidateFields(def *models.Collection, fields map[string]interface{}) error {
	model := def.NewModel()
	if err := models.DecodeFields(fields, model); err != nil {
		return utils.NewAppError(utils.CodeValidation, "fields do not match the collection model", err).
			WithDetail("collection", def.Name)
	}

	if err := v.validate.Struct(model); err != nil {
		return validationError(def.Name, err)
	}
	return nil
}

// ValidateStruct validates a request payload.
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.validate.Struct(s); err != nil {
		return validationError("", err)
	}
	return nil
}

// ValidateQuery checks spec against the collection schema before any data
// is loaded.
func (v *Validator) ValidateQuery(def *models.Collection, spec catalog.QuerySpec) error {
	if err := spec.Validate(def.Schema); err != nil {
		return invalidQuery(def.Name, err)
	}
	return nil
}

func validationError(collection string, err error) error {
	appErr := utils.NewAppError(utils.CodeValidation, "validation failed", err)
	if collection != "" {
		appErr.WithDetail("collection", collection)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields[fieldPath(fe.Namespace())] = fe.Tag()
		}
		appErr.WithDetail("fields", fields)
	}
	return appErr
}

// fieldPath drops the struct name validator puts in front of the namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func invalidQuery(collection string, err error) error {
	var qe *catalog.QueryError
	if !errors.As(err, &qe) {
		return err
	}
	appErr := utils.NewAppError(utils.CodeInvalidQuery, qe.Reason, err).
		WithDetail("collection", collection)
	if qe.Field != "" {
		appErr.WithDetail("field", qe.Field)
	}
	return appErr
}
