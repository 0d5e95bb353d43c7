package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"connectrpc.com/connect"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
)

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func newRequestValidator() (*requestValidator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, fmt.Errorf("failed to register default translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &requestValidator{validate: validate, trans: trans}, nil
}

// check returns an InvalidArgument error listing every violated field of msg.
func (v *requestValidator) check(msg any) *connect.Error {
	err := v.validate.Struct(msg)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(validationErrors))
	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		description := fe.Translate(v.trans)
		violations = append(violations, &errdetails.BadRequest_FieldViolation{
			Field:       fe.Field(),
			Description: description,
		})
		messages = append(messages, description)
	}
	return newInvalidArgumentError(errors.New(strings.Join(messages, ", ")), violations...)
}

func newInvalidArgumentError(err error, violations ...*errdetails.BadRequest_FieldViolation) *connect.Error {
	connectErr := connect.NewError(connect.CodeInvalidArgument, err)
	if detail, detailErr := connect.NewErrorDetail(&errdetails.BadRequest{
		FieldViolations: violations,
	}); detailErr == nil {
		connectErr.AddDetail(detail)
	}
	return connectErr
}
