package jobs

import (
	"log"
	"time"

	"github.com/anjiri1684/edutech_marketplace/models"
	"gorm.io/gorm"
)

// ExpireSubscriptions deactivates tutor-stand plans whose paid period ended
// more than grace ago without a renewal event from the provider.
func ExpireSubscriptions(db *gorm.DB, grace time.Duration) func() {
	return func() {
		log.Println("Running job: ExpireSubscriptions...")

		expired, err := expireSubscriptions(db, time.Now().Add(-grace))
		if err != nil {
			log.Printf("Error expiring subscriptions: %v", err)
			return
		}
		if expired == 0 {
			log.Println("No lapsed subscriptions found.")
			return
		}
		log.Printf("Deactivated %d lapsed subscription(s).", expired)
	}
}

func expireSubscriptions(db *gorm.DB, cutoff time.Time) (int, error) {
	var lapsed []models.TutorStandSubscription
	err := db.Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
		models.SubscriptionActive, cutoff).
		Find(&lapsed).Error
	if err != nil {
		return 0, err
	}

	for _, sub := range lapsed {
		err := db.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.TutorStandSubscription{}).
				Where("id = ? AND status = ?", sub.ID, models.SubscriptionActive).
				Update("status", models.SubscriptionInactive)
			if res.Error != nil || res.RowsAffected == 0 {
				return res.Error
			}
			return tx.Model(&models.Teacher{}).
				Where("id = ?", sub.TeacherID).
				Update("tutor_stand_active", false).Error
		})
		if err != nil {
			return 0, err
		}
	}
	return len(lapsed), nil
}
