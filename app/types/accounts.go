package types

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
)

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewCredentialsRequestFromContext(ctx echo.Context) (*CredentialsRequest, error) {
	var body CredentialsRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Email = strings.TrimSpace(body.Email)

	return &body, nil
}

func (r *CredentialsRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return errors.New("email and password are required")
	}
	return nil
}

type TokenResponse struct {
	Token string `json:"token"`
}

type AccountResponse struct {
	Email     string `json:"email"`
	CreatedAt string `json:"createdAt"`
}
