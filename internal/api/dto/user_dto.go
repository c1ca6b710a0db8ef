package dto

// CreateUserRequest payload for testnet signup.
type CreateUserRequest struct {
	Email        string `json:"email"`
	Graffiti     string `json:"graffiti"`
	CountryCode  string `json:"country_code"`
	SocialChoice string `json:"social_choice"`
	Social       string `json:"social"`
}

var socialChoices = map[string]struct{}{
	"discord":  {},
	"telegram": {},
}

// ValidSocialChoice reports whether choice names a supported social field.
func ValidSocialChoice(choice string) bool {
	if choice == "" {
		return true
	}
	_, ok := socialChoices[choice]
	return ok
}
