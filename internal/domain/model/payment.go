package model

import (
	"fmt"
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodOnline PaymentMethod = "ONLINE"
	// PaymentMethodCredit is the deferred "udar" payment with a fixed term.
	PaymentMethodCredit PaymentMethod = "CREDIT"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusPaid      PaymentStatus = "PAID"
	PaymentStatusOverdue   PaymentStatus = "OVERDUE"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
)

// CreditTerms are the credit durations offered to buyers, in days.
var CreditTerms = []int{7, 15, 30}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodOnline, PaymentMethodCredit:
		return true
	}
	return false
}

// ParsePaymentMethod accepts the method names case-insensitively and "UDAR"
// as an alias of CREDIT.
func ParsePaymentMethod(v string) (PaymentMethod, error) {
	up := strings.ToUpper(strings.TrimSpace(v))
	if up == "UDAR" {
		return PaymentMethodCredit, nil
	}
	m := PaymentMethod(up)
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", v)
	}
	return m, nil
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsCreditTerm reports whether days is one of CreditTerms.
func IsCreditTerm(days int) bool {
	for _, d := range CreditTerms {
		if d == days {
			return true
		}
	}
	return false
}

// ComputeDueDate returns orderDate's calendar date plus creditDays when method
// is CREDIT and a duration is given; nil otherwise. The result is midnight UTC.
func ComputeDueDate(method PaymentMethod, creditDays *int, orderDate time.Time) *time.Time {
	if method != PaymentMethodCredit || creditDays == nil {
		return nil
	}
	due := CalendarDate(orderDate).AddDate(0, 0, *creditDays)
	return &due
}

// CalendarDate drops the time of day, keeping t's calendar date in its own
// location, and returns it as midnight UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
