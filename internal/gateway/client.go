package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"convo-backend/internal/config"
)

// Client talks to the hosted platform's auth API. Credentials created
// here mirror local accounts so the platform's row-level policies and
// storage rules recognize the same identities.
type Client struct {
	config *config.Config
}

type PlatformError struct {
	StatusCode int
	Message    string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform auth error (status %d): %s", e.StatusCode, e.Message)
}

func NewClient(cfg *config.Config) *Client {
	return &Client{config: cfg}
}

// Enabled reports whether a platform URL is configured; all calls are
// no-ops worth skipping when it is not.
func (s *Client) Enabled() bool {
	return s.config.Supabase.URL != ""
}

type SignUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data"`
}

type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

type SignUpResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (s *Client) SignUp(email, password string, data map[string]interface{}) (*SignUpResponse, error) {
	url := fmt.Sprintf("%s/auth/v1/signup", s.config.Supabase.URL)
	reqBody, _ := json.Marshal(SignUpRequest{
		Email:    email,
		Password: password,
		Data:     data,
	})

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", s.config.Supabase.AnonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var result SignUpResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User         User   `json:"user"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Client) SignIn(email, password string) (*SignInResponse, error) {
	url := fmt.Sprintf("%s/auth/v1/token?grant_type=password", s.config.Supabase.URL)
	reqBody, _ := json.Marshal(SignInRequest{
		Email:    email,
		Password: password,
	})

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", s.config.Supabase.AnonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}

	var result SignInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

type ResendRequest struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

func (s *Client) Resend(email string) error {
	url := fmt.Sprintf("%s/auth/v1/resend", s.config.Supabase.URL)
	reqBody, _ := json.Marshal(ResendRequest{
		Type:  "signup",
		Email: email,
	})

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return err
	}

	req.Header.Set("apikey", s.config.Supabase.AnonKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return nil
}

type AdminCreateUserRequest struct {
	Email        string                 `json:"email"`
	Password     string                 `json:"password"`
	EmailConfirm bool                   `json:"email_confirm"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

func (s *Client) AdminCreateUser(email, password string, userMetadata map[string]interface{}) (*User, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users", s.config.Supabase.URL)
	reqBody, _ := json.Marshal(AdminCreateUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
		UserMetadata: userMetadata,
	})

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, err
	}

	// Admin operations require the service role key
	req.Header.Set("apikey", s.config.Supabase.ServiceRoleKey)
	req.Header.Set("Authorization", "Bearer "+s.config.Supabase.ServiceRoleKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, decodeError(resp)
	}

	var result User
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

func decodeError(resp *http.Response) error {
	var errResp map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&errResp)

	msg := "unknown error"
	if m, ok := errResp["msg"].(string); ok {
		msg = m
	} else if m, ok := errResp["error_description"].(string); ok {
		msg = m
	}

	return &PlatformError{
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}
