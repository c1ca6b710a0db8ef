package domain

import "time"

// Profile is the backend user record returned by GET /me.
type Profile struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	Graffiti         string    `json:"graffiti"`
	CountryCode      string    `json:"country_code"`
	DiscordUsername  *string   `json:"discord_username"`
	TelegramUsername *string   `json:"telegram_username"`
	TotalPoints      int64     `json:"total_points"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IdentityMetadata is the identity provider's view of the token holder.
type IdentityMetadata struct {
	Issuer        string `json:"issuer"`
	PublicAddress string `json:"public_address"`
	Email         string `json:"email"`
}
