package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondValidation writes field-level problems of a validator error
func respondValidation(w http.ResponseWriter, err error) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	problems := map[string][]string{}
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())

		switch fe.Tag() {
		case "required":
			problems[field] = append(problems[field], "This field is required")
		case "corpcode":
			problems[field] = append(problems[field], "Must be an 8-digit DART corp code")
		case "reprt":
			problems[field] = append(problems[field], "Must be auto, 11011, 11012, 11013 or 11014")
		case "fsdiv":
			problems[field] = append(problems[field], "Must be CFS or OFS")
		case "max":
			problems[field] = append(problems[field], "Too large, max: "+fe.Param())
		case "min":
			problems[field] = append(problems[field], "Too small, min: "+fe.Param())
		case "len", "numeric":
			problems[field] = append(problems[field], "Years must be 4-digit numbers")
		default:
			problems[field] = append(problems[field], "Invalid value provided")
		}
	}

	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":  "Invalid request",
		"fields": problems,
	})
}
