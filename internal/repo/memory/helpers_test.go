package memory

import (
	"time"

	"github.com/geocoder89/jumpin/internal/domain/profile"
)

func profileFixture(id, email string) profile.Profile {
	return profile.New(profile.NewProfileParams{
		ID:        id,
		FirstName: "Anna",
		LastName:  "Bianchi",
		Email:     email,
		School:    "Liceo Test",
		DOB:       "2005-03-01",
	}, time.Now())
}
