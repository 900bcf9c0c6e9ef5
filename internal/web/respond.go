package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	apperrors "compound-site/internal/common/errors"
	"compound-site/internal/common/validation"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads a bounded body, checks it against schema and decodes it
// into dst.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, schema *validation.Schema, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.NewInvalidRequestError("request body too large")
		}
		return apperrors.NewInvalidRequestError(err.Error())
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return apperrors.NewInvalidRequestError("request body is required")
	}

	if vr := schema.ValidateBytes(body); !vr.Valid {
		return apperrors.NewInvalidRequestError(strings.Join(vr.GetErrorMessages(), "; "))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.NewInvalidRequestError(err.Error())
	}
	return nil
}

var (
	fieldValueSchema = validation.MustCompile(`{
		"type": "object",
		"required": ["value"],
		"properties": {"value": {"type": "string", "maxLength": 5000}}
	}`)

	fieldTagSchema = validation.MustCompile(`{
		"type": "object",
		"required": ["tag"],
		"properties": {"tag": {"type": "string", "minLength": 1, "maxLength": 200}}
	}`)

	eligibilitySchema = validation.MustCompile(`{
		"type": "object",
		"required": ["name", "years", "industry", "goal"],
		"properties": {
			"name": {"type": "string", "maxLength": 200},
			"years": {"type": "string", "maxLength": 50},
			"industry": {"type": "string", "maxLength": 200},
			"goal": {"type": "string", "maxLength": 2000}
		}
	}`)

	newsletterSchema = validation.MustCompile(`{
		"type": "object",
		"required": ["email"],
		"properties": {"email": {"type": "string", "maxLength": 320}}
	}`)

	contactSchema = validation.MustCompile(`{
		"type": "object",
		"required": ["name", "email", "message"],
		"properties": {
			"name": {"type": "string"},
			"email": {"type": "string"},
			"subject": {"type": "string"},
			"message": {"type": "string"}
		}
	}`)
)
