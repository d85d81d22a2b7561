package worker

import (
	"encoding/json"

	"tradingrelay/src/model"
)

// decodePayload round-trips the generic job payload into a typed struct.
func decodePayload(payload map[string]interface{}, v interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

type orderUpdatePayload struct {
	OrderID         string          `json:"orderId"`
	ExchangeOrderID string          `json:"exchangeOrderId"`
	Exchange        string          `json:"exchange"`
	BotID           string          `json:"botId"`
	InstID          string          `json:"instId"`
	Side            string          `json:"side"`
	Type            string          `json:"type"`
	Price           float64         `json:"price"`
	Size            float64         `json:"size"`
	FilledSize      float64         `json:"filledSize"`
	FilledAvgPrice  float64         `json:"filledAvgPrice"`
	RemainingSize   float64         `json:"remainingSize"`
	Status          string          `json:"status"`
	Source          string          `json:"source"`
	IsPaper         bool            `json:"isPaper"`
	StrategyName    string          `json:"strategyName"`
	Currency        string          `json:"currency"`
	Fees            float64         `json:"fees"`
	Error           string          `json:"error"`
	Details         string          `json:"details"`
	Timestamp       model.EventTime `json:"timestamp"`
}

type tradeNewPayload struct {
	TradeID     string          `json:"tradeId"`
	OrderID     string          `json:"orderId"`
	BotID       string          `json:"botId"`
	Exchange    string          `json:"exchange"`
	InstID      string          `json:"instId"`
	Side        string          `json:"side"`
	Price       float64         `json:"price"`
	Size        float64         `json:"size"`
	Fee         float64         `json:"fee"`
	RealizedPnl float64         `json:"realizedPnl"`
	Currency    string          `json:"currency"`
	IsPaper     bool            `json:"isPaper"`
	Timestamp   model.EventTime `json:"timestamp"`
}

type riskAlertPayload struct {
	NotificationID string `json:"notificationId"`
	Type           string `json:"type"`
	Severity       string `json:"severity"`
	Exchange       string `json:"exchange"`
	BotID          string `json:"botId"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

type auditPayload struct {
	AuditID    string          `json:"auditId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	Exchange   string          `json:"exchange"`
	Timestamp  model.EventTime `json:"timestamp"`
}

type engineLifecyclePayload struct {
	EngineID  string          `json:"engineId"`
	Event     string          `json:"event"`
	Timestamp model.EventTime `json:"timestamp"`
}
