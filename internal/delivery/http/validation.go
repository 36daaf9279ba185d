package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/farmasearch/backend/internal/domain"
	"github.com/farmasearch/backend/internal/usecase"
)

// Request bounds
const (
	MaxKeywordQueryLength = 200
	MinQuestionLength     = 5
	MaxQuestionLength     = 500
)

// ValidationError reports an invalid request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidRequest
}

type searchOptionsBody struct {
	Limit *int `json:"limit"`
	Page  *int `json:"page"`
}

type keywordSearchBody struct {
	Query   *string            `json:"query"`
	Filters map[string]string  `json:"filters"`
	Options *searchOptionsBody `json:"options"`
}

type vectorSearchBody struct {
	Question *string            `json:"question"`
	Options  *searchOptionsBody `json:"options"`
}

// decodeBody decodes a JSON request body, mapping type mismatches to the offending field
func decodeBody(r io.Reader, dst interface{}) error {
	if err := json.NewDecoder(r).Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			return &ValidationError{Field: field, Message: fmt.Sprintf("El campo %q tiene un tipo inválido", field)}
		case errors.Is(err, io.EOF):
			return &ValidationError{Field: "body", Message: "El cuerpo de la solicitud es requerido"}
		default:
			return &ValidationError{Field: "body", Message: "El cuerpo de la solicitud debe ser JSON válido"}
		}
	}
	return nil
}

// validateKeywordSearch checks a keyword search body and converts it to a domain request
func validateKeywordSearch(body *keywordSearchBody, maxLimit int) (*domain.KeywordSearchRequest, error) {
	if body.Query == nil || strings.TrimSpace(*body.Query) == "" {
		return nil, &ValidationError{Field: "query", Message: `El campo "query" es requerido y debe ser un texto no vacío`}
	}
	if utf8.RuneCountInString(*body.Query) > MaxKeywordQueryLength {
		return nil, &ValidationError{Field: "query", Message: fmt.Sprintf("La consulta no puede exceder %d caracteres", MaxKeywordQueryLength)}
	}

	for key := range body.Filters {
		if !isSupportedFilter(key) {
			return nil, &ValidationError{Field: "filters." + key, Message: fmt.Sprintf("Filtro no soportado: %s", key)}
		}
	}

	options, err := validateOptions(body.Options, maxLimit,
		fmt.Sprintf("El límite debe ser un número entre 1 y %d", maxLimit))
	if err != nil {
		return nil, err
	}

	return &domain.KeywordSearchRequest{
		Query:   *body.Query,
		Filters: body.Filters,
		Options: options,
	}, nil
}

// validateVectorSearch checks a vector search body and converts it to a domain request
func validateVectorSearch(body *vectorSearchBody, maxLimit int) (*domain.VectorSearchRequest, error) {
	if body.Question == nil || strings.TrimSpace(*body.Question) == "" {
		return nil, &ValidationError{Field: "question", Message: `El campo "question" es requerido y debe ser un texto no vacío`}
	}

	length := utf8.RuneCountInString(*body.Question)
	if length < MinQuestionLength {
		return nil, &ValidationError{Field: "question", Message: fmt.Sprintf("La pregunta debe tener al menos %d caracteres", MinQuestionLength)}
	}
	if length > MaxQuestionLength {
		return nil, &ValidationError{Field: "question", Message: fmt.Sprintf("La pregunta no puede exceder %d caracteres", MaxQuestionLength)}
	}

	options, err := validateOptions(body.Options, maxLimit,
		fmt.Sprintf("El límite para búsqueda vectorial debe ser un número entre 1 y %d", maxLimit))
	if err != nil {
		return nil, err
	}

	return &domain.VectorSearchRequest{
		Question: *body.Question,
		Options:  options,
	}, nil
}

// validateOptions bounds limit to 1..maxLimit; zero or absent means the default
func validateOptions(options *searchOptionsBody, maxLimit int, limitMessage string) (domain.SearchOptions, error) {
	var result domain.SearchOptions
	if options == nil {
		return result, nil
	}

	if options.Limit != nil && *options.Limit != 0 {
		if *options.Limit < 1 || *options.Limit > maxLimit {
			return result, &ValidationError{Field: "options.limit", Message: limitMessage}
		}
		result.Limit = *options.Limit
	}

	if options.Page != nil {
		if *options.Page < 0 {
			return result, &ValidationError{Field: "options.page", Message: "La página no puede ser negativa"}
		}
		result.Page = *options.Page
	}

	return result, nil
}

func isSupportedFilter(key string) bool {
	for _, f := range usecase.SupportedFilters {
		if key == f {
			return true
		}
	}
	return false
}
