package model

import (
	"net/mail"
	"strings"
	"time"

	"subscription-billing/internal/domain"

	"github.com/google/uuid"
)

// Client is a billed customer. Email is unique case-insensitively, so it is
// always stored lower-cased.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Company   string    `json:"company,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(id, name, email, phone, company string) (*Client, error) {
	if id == "" {
		id = uuid.NewString()
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Client{
		ID:        id,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(phone),
		Company:   strings.TrimSpace(company),
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NormalizeEmail trims, lower-cases and syntax-checks an address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", domain.NewValidationError("email", "is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.NewValidationError("email", "must be a valid email address")
	}
	return email, nil
}

func (c *Client) IsZero() bool { return c == nil || c.ID == "" }

// ErrEmptyID rejects lookups and deletes without an identifier.
var ErrEmptyID = domain.NewValidationError("id", "is required")
