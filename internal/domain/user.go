package domain

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type AdminUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// DisplayName prefers the first name and falls back to the email.
func (u AdminUser) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

func (u AdminUser) IsAdmin() bool {
	return u.Role == RoleAdmin || u.Role == RoleSuperAdmin
}

type LoginData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn,omitempty"`
}

type AuthResponse struct {
	Admin  AdminUser `json:"admin"`
	Tokens TokenPair `json:"tokens"`
}
