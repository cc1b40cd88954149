package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"mini-social-server/pkg/logger"
	"mini-social-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// Options carries what every handler needs besides its service.
type Options struct {
	Log logrus.FieldLogger
	// ExposeErrors adds internal error text to 500 responses.
	ExposeErrors bool
}

type base struct {
	validate *validator.Validate
	log      logrus.FieldLogger
	expose   bool
}

func newBase(opts Options, component string) base {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	return base{
		validate: v,
		log:      log.WithField("handler", component),
		expose:   opts.ExposeErrors,
	}
}

// decode reads a JSON body into dst and validates it. It writes the 400
// itself and reports whether the handler may continue.
func (b *base) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.BadRequest(w, "Invalid request body")
		return false
	}

	if err := b.validate.Struct(dst); err != nil {
		response.BadRequest(w, validationMessage(err))
		return false
	}

	return true
}

func (b *base) internalError(w http.ResponseWriter, msg string, err error) {
	logger.LogError(b.log, msg, err, nil)
	response.InternalError(w, msg, err, b.expose)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", fe.Field()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}
