package bounty

import (
	"sort"

	"bountytracker/internal/core"
)

// AlertStatus is the display status of an alert.
type AlertStatus string

const (
	StatusPaid     AlertStatus = "paid"
	StatusOverdue  AlertStatus = "overdue"
	StatusDueSoon  AlertStatus = "due-soon"
	StatusUpcoming AlertStatus = "upcoming"
)

// Alert is one sale-month whose check is overdue or falls inside the window.
type Alert struct {
	SaleID         string             `json:"saleId"`
	IMEI           string             `json:"imei"`
	Email          string             `json:"email"`
	StoreLocation  core.StoreLocation `json:"storeLocation"`
	MonthNumber    int                `json:"monthNumber"`
	CheckDate      core.Date          `json:"checkDate"`
	DaysUntilCheck int                `json:"daysUntilCheck"`
	IsOverdue      bool               `json:"isOverdue"`
	IsPaid         bool               `json:"isPaid"`
	Status         AlertStatus        `json:"status"`
}

// DiagnosticKind classifies per-sale data problems found while classifying.
type DiagnosticKind string

const InvalidActivationDate DiagnosticKind = "InvalidActivationDate"

// Diagnostic records a sale that was skipped.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	SaleID  string         `json:"saleId"`
	IMEI    string         `json:"imei"`
	Value   string         `json:"value"`
	Message string         `json:"message"`
}

// Result is the output of Classify.
type Result struct {
	Alerts      []Alert      `json:"alerts"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Classify builds the alert list for all non-deactivated sales. An alert is
// emitted for month m when its check is at most windowDays away; overdue
// months are always included. Unpaid overdue alerts sort first, the rest by
// ascending days; ties keep sale order then month order.
//
// A sale with an unparseable activation date contributes no alerts and one
// InvalidActivationDate diagnostic.
func Classify(sales []core.Sale, today core.Date, windowDays int) Result {
	res := Result{Alerts: []Alert{}, Diagnostics: []Diagnostic{}}

	for _, sale := range sales {
		if sale.Status == core.StatusDeactivated {
			continue
		}
		activation, err := core.ParseDate(sale.ActivationDate)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Kind:    InvalidActivationDate,
				SaleID:  sale.ID,
				IMEI:    sale.IMEI,
				Value:   sale.ActivationDate,
				Message: err.Error(),
			})
			continue
		}

		for month := 1; month <= MonthsTracked; month++ {
			check := CheckDate(activation, month)
			days := DaysUntilCheck(check, today)
			if days > windowDays {
				continue
			}
			// A missing month entry reads as unpaid.
			entry, _ := sale.Month(month)
			a := Alert{
				SaleID:         sale.ID,
				IMEI:           sale.IMEI,
				Email:          sale.Email,
				StoreLocation:  sale.StoreLocation,
				MonthNumber:    month,
				CheckDate:      check,
				DaysUntilCheck: days,
				IsOverdue:      days < 0,
				IsPaid:         entry.Paid,
			}
			a.Status = statusOf(a)
			res.Alerts = append(res.Alerts, a)
		}
	}

	sort.SliceStable(res.Alerts, func(i, j int) bool {
		ui, uj := isUrgent(res.Alerts[i]), isUrgent(res.Alerts[j])
		if ui != uj {
			return ui
		}
		return res.Alerts[i].DaysUntilCheck < res.Alerts[j].DaysUntilCheck
	})
	return res
}

func statusOf(a Alert) AlertStatus {
	switch {
	case a.IsPaid:
		return StatusPaid
	case a.IsOverdue:
		return StatusOverdue
	case a.DaysUntilCheck <= DueSoonDays:
		return StatusDueSoon
	default:
		return StatusUpcoming
	}
}
