package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/infra/logging"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

const (
	kindValidation   = "validation"
	kindNotFound     = "not_found"
	kindConflict     = "conflict"
	kindGateway      = "gateway"
	kindInternal     = "internal"
	kindUnauthorized = "unauthorized"
	kindRateLimited  = "rate_limited"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// classify maps the domain taxonomy onto a status, kind and client message.
func classify(err error) (int, string, string) {
	var ve *domain.ValidationError
	var ge *domain.GatewayError
	var te *domain.TransportError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, kindValidation, ve.Error()
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, kindValidation, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, kindNotFound, "not found"
	case errors.Is(err, domain.ErrDuplicateInvoice):
		return http.StatusConflict, kindConflict, domain.ErrDuplicateInvoice.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, kindConflict, "already exists"
	case errors.Is(err, domain.ErrSubscriptionNotActive):
		return http.StatusConflict, kindConflict, domain.ErrSubscriptionNotActive.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, kindUnauthorized, "invalid credentials"
	case errors.As(err, &ge):
		return http.StatusBadGateway, kindGateway, ge.Error()
	case errors.As(err, &te):
		return http.StatusBadGateway, kindGateway, te.Error()
	default:
		return http.StatusInternalServerError, kindInternal, "internal server error"
	}
}

// writeError renders err as {error, kind}. Internal errors are logged and
// only shown verbatim in dev mode.
func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, dev bool, err error) {
	status, kind, msg := classify(err)
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), logger)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if dev {
			msg = err.Error()
		}
	}
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

// decodeJSON reads a bounded body into dst and runs struct validation.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("", "request body is required")
		}
		return domain.NewValidationError("", "invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var fes validator.ValidationErrors
		if errors.As(err, &fes) && len(fes) > 0 {
			fe := fes[0]
			return domain.NewValidationError(fe.Field(), describeTag(fe))
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

// pageParams reads limit/offset; bad values fall back to the use case defaults.
func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
