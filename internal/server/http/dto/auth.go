package dto

// AdminLoginRequest carries operator credentials.
type AdminLoginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// AdminTokenResponse returns the bearer token for the admin API.
type AdminTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
}
