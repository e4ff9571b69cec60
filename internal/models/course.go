package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-pos-api/internal/billing"
)

// Course is a catalog entry describing how a class is billed. The engine
// treats it as read-only configuration.
type Course struct {
	ID                 string            `db:"id" json:"id"`
	Name               string            `db:"name" json:"name"`
	PriceType          billing.PriceType `db:"price_type" json:"price_type"`
	Price              decimal.Decimal   `db:"price" json:"price"`
	ClassDays          pq.Int64Array     `db:"class_days" json:"class_days"`
	ClassesPerCycle    int               `db:"classes_per_cycle" json:"classes_per_cycle"`
	AllowsInstallments bool              `db:"allows_installments" json:"allows_installments"`
	InstallmentCount   int               `db:"installment_count" json:"installment_count"`
	Active             bool              `db:"active" json:"active"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// Weekdays converts the stored day indices (0=Sunday..6=Saturday) into the
// billing engine's weekday set.
func (c *Course) Weekdays() []time.Weekday {
	if len(c.ClassDays) == 0 {
		return nil
	}
	days := make([]time.Weekday, 0, len(c.ClassDays))
	for _, d := range c.ClassDays {
		if d >= 0 && d <= 6 {
			days = append(days, time.Weekday(d))
		}
	}
	return days
}

// Terms projects the course into the classifier's input shape.
func (c *Course) Terms() billing.CourseTerms {
	return billing.CourseTerms{
		PriceType:       c.PriceType,
		Price:           c.Price,
		ClassDays:       c.Weekdays(),
		ClassesPerCycle: c.ClassesPerCycle,
	}
}

// CourseFilter encapsulates allowed search parameters for listing courses.
type CourseFilter struct {
	Search    string
	PriceType string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
