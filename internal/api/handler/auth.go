package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rensmac/go-api-starter/internal/api/middleware"
	"github.com/rensmac/go-api-starter/internal/api/response"
	"github.com/rensmac/go-api-starter/internal/domain"
	"github.com/rensmac/go-api-starter/internal/service"
	"github.com/rs/zerolog/log"
)

var validate = validator.New()

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input domain.UserCreate
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if errs, ok := validateStruct(input); !ok {
		response.BadRequest(w, errs)
		return
	}

	result, err := h.authService.Register(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			response.Conflict(w, domain.ErrDuplicateEmail.Error())
			return
		}
		log.Error().Err(err).Msg("registration failed")
		response.InternalError(w, "internal server error")
		return
	}

	response.Created(w, result)
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input domain.UserLogin
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if errs, ok := validateStruct(input); !ok {
		response.BadRequest(w, errs)
		return
	}

	result, err := h.authService.Login(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			response.Unauthorized(w, domain.ErrInvalidCredentials.Error())
			return
		}
		log.Error().Err(err).Msg("login failed")
		response.InternalError(w, "internal server error")
		return
	}

	response.OK(w, result)
}

// Me returns the current authenticated user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	user, err := h.authService.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			response.Unauthorized(w, "user not found")
			return
		}
		log.Error().Err(err).Msg("user lookup failed")
		response.InternalError(w, "internal server error")
		return
	}

	response.OK(w, user)
}

// validateStruct runs the struct validator and flattens failures into a
// field -> message map
func validateStruct(v any) (map[string]string, bool) {
	err := validate.Struct(v)
	if err == nil {
		return nil, true
	}

	errs := make(map[string]string)
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				errs[e.Field()] = "field is required"
			case "email":
				errs[e.Field()] = "invalid email format"
			case "min":
				errs[e.Field()] = "must be at least " + e.Param() + " characters"
			case "max":
				errs[e.Field()] = "must be at most " + e.Param() + " characters"
			default:
				errs[e.Field()] = "validation failed on " + e.Tag()
			}
		}
	} else {
		errs["_"] = err.Error()
	}
	return errs, false
}
