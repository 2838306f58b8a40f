package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Operation describes what happened to a sale.
type Operation string

const (
	OperationUpsert Operation = "upsert"
	OperationDelete Operation = "delete"
)

// SaleEventMessage notifies consumers that a sale changed. It carries only
// the ID; consumers re-read the store for current state.
type SaleEventMessage struct {
	SaleID    string    `json:"saleId"`
	Operation Operation `json:"operation"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSaleEventMessage(saleID string, op Operation) *SaleEventMessage {
	return &SaleEventMessage{
		SaleID:    saleID,
		Operation: op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SaleEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SaleEventMessageFromJSON parses and checks a sale event.
func SaleEventMessageFromJSON(data []byte) (*SaleEventMessage, error) {
	var msg SaleEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.SaleID == "" {
		return nil, fmt.Errorf("sale event without saleId")
	}
	if msg.Operation != OperationUpsert && msg.Operation != OperationDelete {
		return nil, fmt.Errorf("unknown sale event operation %q", msg.Operation)
	}
	return &msg, nil
}

// AlertDigestItem is one alert line of a digest.
type AlertDigestItem struct {
	SaleID         string `json:"saleId"`
	IMEI           string `json:"imei"`
	Email          string `json:"email"`
	StoreLocation  string `json:"storeLocation"`
	MonthNumber    int    `json:"monthNumber"`
	CheckDate      string `json:"checkDate"`
	DaysUntilCheck int    `json:"daysUntilCheck"`
	Status         string `json:"status"`
}

// AlertDigestMessage summarizes a scheduled alert scan.
type AlertDigestMessage struct {
	Date        string            `json:"date"`
	WindowDays  int               `json:"windowDays"`
	Overdue     int               `json:"overdue"`
	DueSoon     int               `json:"dueSoon"`
	Upcoming    int               `json:"upcoming"`
	Diagnostics int               `json:"diagnostics"`
	Items       []AlertDigestItem `json:"items"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

func (m *AlertDigestMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertDigestMessageFromJSON(data []byte) (*AlertDigestMessage, error) {
	var msg AlertDigestMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
