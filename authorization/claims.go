package authorization

import (
	"encoding/json"

	"github.com/cristalhq/jwt/v4"

	"github.com/TalhaJubaerPrantor/neoblood-backend/domain"
)

func GetClaims(token *jwt.Token) (*domain.Claims, error) {
	var claims domain.Claims
	if err := json.Unmarshal(token.Claims(), &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
