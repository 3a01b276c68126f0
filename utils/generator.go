package utils

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/anjiri1684/edutech_marketplace/models"
	"gorm.io/gorm"
)

const (
	certificateCodeLength = 8
	certificatePrefix     = "EDU-"
	letterBytes           = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	maxAttempts           = 10
)

func randomCode(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}

// GenerateCertificateNumber returns a printable certificate number not yet
// used by any certificate. The unique index still guards concurrent issuers.
func GenerateCertificateNumber(tx *gorm.DB) (string, error) {
	for i := 0; i < maxAttempts; i++ {
		code := certificatePrefix + randomCode(certificateCodeLength)

		var existing models.Certificate
		err := tx.Select("id").Where("number = ?", code).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free certificate number after %d attempts", maxAttempts)
}
